package service

type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingDeposit
	StageAwaitingNote
)

// Conversation is the per-chat state. Handlers receive it and return the
// next value; nothing mutates it in place.
type Conversation struct {
	Menu  string
	Stage Stage

	// Coin is set while awaiting a deposit txid.
	Coin string

	// NoteUserID and NoteTxID name the transaction awaiting an admin note.
	NoteUserID string
	NoteTxID   string
}

func (c Conversation) Idle() Conversation {
	return Conversation{Menu: c.Menu}
}

func (c Conversation) AwaitDeposit(coin string) Conversation {
	return Conversation{Menu: c.Menu, Stage: StageAwaitingDeposit, Coin: coin}
}

func (c Conversation) AwaitNote(userID, txID string) Conversation {
	return Conversation{Menu: c.Menu, Stage: StageAwaitingNote, NoteUserID: userID, NoteTxID: txID}
}

func (c Conversation) WithMenu(menu string) Conversation {
	c.Menu = menu
	return c
}
