package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Fi44er/deposit_bot/internal/callback"
	"github.com/Fi44er/deposit_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		b.answerCallback(query.ID, "")
		return
	}
	if strings.HasPrefix(query.Data, pendingPagePrefix) {
		b.handlePendingPage(ctx, query)
		return
	}

	origin := &service.Origin{ChatID: formatID(query.Message.Chat.ID), MessageID: query.Message.MessageID}
	payload, err := callback.Parse(query.Data)
	if err != nil {
		b.logger.Warnf("Malformed callback %q from %d: %v", query.Data, query.From.ID, err)
		b.editText(origin, service.Describe(err))
		b.answerCallback(query.ID, "")
		return
	}

	if view, ok := b.pendingViewAt(query.Message.Chat.ID, query.Message.MessageID); ok && isDecision(payload) {
		b.decideFromPage(ctx, query, payload, view)
		return
	}

	notice := ""
	b.withConversation(query.From.ID, func(conv service.Conversation) service.Conversation {
		next, err := b.service.HandleAction(ctx, formatID(query.From.ID), conv, payload, origin)
		if err != nil {
			b.logger.Warnf("Action %s on %s/%s by %d failed: %v", payload.Action, payload.UserID, payload.TxID, query.From.ID, err)
			notice = service.Describe(err)
			// keep the buttons when retrying could help
			if !errors.Is(err, service.ErrUnauthorized) && !errors.Is(err, service.ErrStorage) {
				b.editText(origin, notice)
			}
		}
		return next
	})
	b.answerCallback(query.ID, notice)
}

// decideFromPage applies a decision pressed on a pending list page. The
// page is redrawn in place so the other entries stay reachable.
func (b *Bot) decideFromPage(ctx context.Context, query *tgbotapi.CallbackQuery, payload callback.Payload, view pendingView) {
	adminID := formatID(query.From.ID)
	notice, decided := decisionNotice(payload), true
	b.withConversation(query.From.ID, func(conv service.Conversation) service.Conversation {
		next, err := b.service.HandleAction(ctx, adminID, conv, payload, nil)
		if err != nil {
			b.logger.Warnf("Action %s on %s/%s by %d failed: %v", payload.Action, payload.UserID, payload.TxID, query.From.ID, err)
			notice, decided = service.Describe(err), false
		}
		return next
	})
	b.showPending(ctx, query.Message.Chat.ID, adminID, view.page, query.Message)
	b.answerCallback(query.ID, notice)
	if decided {
		b.offerNote(query.Message.Chat.ID, payload, notice)
	}
}

// offerNote posts the note button for a decision taken on a pending page.
func (b *Bot) offerNote(chatID int64, decided callback.Payload, notice string) {
	label := "📝 Add Note"
	if decided.Action == callback.ActionReject {
		label = "📝 Add Reason"
	}
	note := decided
	note.Action, note.Note = callback.ActionNote, ""
	text := fmt.Sprintf("%s\n• User: %s\n• TXID: %s", notice, decided.UserID, decided.TxID)
	keyboard := inlineKeyboard([][]service.Control{{{Label: label, Payload: note.Encode()}}})
	b.sendMessage(chatID, text, *keyboard)
}

func isDecision(p callback.Payload) bool {
	return p.Action == callback.ActionApprove || p.Action == callback.ActionReject
}

func decisionNotice(p callback.Payload) string {
	if p.Action == callback.ActionApprove {
		return "✅ Transaction approved."
	}
	return "❌ Transaction rejected."
}

func (b *Bot) editText(origin *service.Origin, text string) {
	chatID, err := parseChatID(origin.ChatID)
	if err != nil {
		b.logger.Errorf("Cannot edit message: %v", err)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, origin.MessageID, text)
	if _, err := b.API.Request(edit); err != nil {
		b.logger.Errorf("Failed to edit message %d: %v", origin.MessageID, err)
	}
}
