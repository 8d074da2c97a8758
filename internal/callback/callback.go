// Package callback encodes and decodes the inline button payloads attached
// to admin notifications.
//
// Two wire forms are accepted because either may arrive from messages sent
// by earlier deployments:
//
//	action_userId_txid      (txid kept verbatim, may contain '_')
//	action|userId|txid[|note]
//
// Only the underscore form is emitted.
package callback

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionNote       Action = "note"
	ActionCancelNote Action = "cancel_note"
)

// MaxDataLength is Telegram's limit for callback_data.
const MaxDataLength = 64

// PartialMarker terminates a txid that was shortened to fit MaxDataLength.
const PartialMarker = "*"

var ErrMalformed = errors.New("malformed callback payload")

type Payload struct {
	Action Action
	UserID string
	TxID   string
	// Note is only carried by the legacy pipe form.
	Note string
	// Partial marks TxID as a prefix of the real txid. A txid that really
	// ends in the marker parses the same way, so lookups must try
	// TxID+"*" exactly before matching by prefix.
	Partial bool
}

func (a Action) valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionNote, ActionCancelNote:
		return true
	}
	return false
}

// Parse accepts both wire forms. The pipe form is only chosen when the text
// before the first '|' is a bare action, so an underscore payload whose
// txid contains '|' still parses as underscore.
func Parse(data string) (Payload, error) {
	if head, _, ok := strings.Cut(data, "|"); ok && !strings.Contains(head, "_") && Action(head).valid() {
		return parseLegacy(data)
	}
	return parseUnderscore(data)
}

func parseLegacy(data string) (Payload, error) {
	parts := strings.SplitN(data, "|", 4)
	if len(parts) < 3 {
		return Payload{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	p := Payload{Action: Action(parts[0]), UserID: parts[1], TxID: parts[2]}
	if len(parts) == 4 {
		p.Note = strings.TrimSpace(parts[3])
	}
	return finish(p, data)
}

func parseUnderscore(data string) (Payload, error) {
	if rest, ok := strings.CutPrefix(data, string(ActionCancelNote)); ok {
		// a bare "cancel_note" is enough to clear the capture
		if rest == "" {
			return Payload{Action: ActionCancelNote}, nil
		}
		if !strings.HasPrefix(rest, "_") {
			return Payload{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		userID, txID, ok := strings.Cut(rest[1:], "_")
		if !ok {
			return Payload{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return finish(Payload{Action: ActionCancelNote, UserID: userID, TxID: txID}, data)
	}

	parts := strings.SplitN(data, "_", 3)
	if len(parts) != 3 {
		return Payload{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	return finish(Payload{Action: Action(parts[0]), UserID: parts[1], TxID: parts[2]}, data)
}

func finish(p Payload, data string) (Payload, error) {
	if !p.Action.valid() {
		return Payload{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, p.Action)
	}
	if p.UserID == "" || p.TxID == "" {
		return Payload{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	if txID, ok := strings.CutSuffix(p.TxID, PartialMarker); ok && txID != "" {
		p.TxID = txID
		p.Partial = true
	}
	return p, nil
}

// Encode renders the underscore form. A txid that does not fit in
// MaxDataLength is cut and marked as a prefix.
func (p Payload) Encode() string {
	head := string(p.Action) + "_" + p.UserID + "_"
	txID := p.TxID
	if p.Partial {
		txID += PartialMarker
	}
	if len(head)+len(txID) <= MaxDataLength {
		return head + txID
	}
	room := MaxDataLength - len(head) - len(PartialMarker)
	// never split a multi-byte rune; Telegram refuses invalid UTF-8
	for room > 0 && !utf8.RuneStart(p.TxID[room]) {
		room--
	}
	if room <= 0 {
		return head + PartialMarker
	}
	return head + p.TxID[:room] + PartialMarker
}

func Approve(userID, txID string) Payload {
	return Payload{Action: ActionApprove, UserID: userID, TxID: txID}
}

func Reject(userID, txID string) Payload {
	return Payload{Action: ActionReject, UserID: userID, TxID: txID}
}

func Note(userID, txID string) Payload {
	return Payload{Action: ActionNote, UserID: userID, TxID: txID}
}

func CancelNote(userID, txID string) Payload {
	return Payload{Action: ActionCancelNote, UserID: userID, TxID: txID}
}
