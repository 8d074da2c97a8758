package bot

import (
	"github.com/Fi44er/deposit_bot/internal/service"
)

// withConversation hands the sender's conversation to handler and stores
// the one it returns. A panicking handler leaves the sender idle so no
// capture state outlives the update.
func (b *Bot) withConversation(userID int64, handler func(service.Conversation) service.Conversation) {
	conv := b.getConversation(userID)
	defer func() {
		if r := recover(); r != nil {
			b.setConversation(userID, conv.Idle())
			panic(r)
		}
	}()
	b.setConversation(userID, handler(conv))
}
