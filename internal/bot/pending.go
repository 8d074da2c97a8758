package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Fi44er/deposit_bot/internal/callback"
	"github.com/Fi44er/deposit_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pendingPerPage    = 5
	pendingPagePrefix = "pending_page:"
)

// pendingView is the page an admin chat currently shows.
type pendingView struct {
	messageID int
	page      int
}

func (b *Bot) pendingViewAt(chatID int64, messageID int) (pendingView, bool) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	view, ok := b.pendingViews[chatID]
	if !ok || view.messageID != messageID {
		return pendingView{}, false
	}
	return view, true
}

func (b *Bot) setPendingView(chatID int64, view pendingView) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	b.pendingViews[chatID] = view
}

func (b *Bot) clearPendingView(chatID int64) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	delete(b.pendingViews, chatID)
}

// showPending lists pending transactions one page at a time with decision
// buttons for each. When origin is set the page replaces that message.
func (b *Bot) showPending(ctx context.Context, chatID int64, adminID string, page int, origin *tgbotapi.Message) {
	pending, err := b.service.PendingTransactions(ctx, adminID)
	if err != nil {
		b.logger.Warnf("Failed to list pending transactions for %s: %v", adminID, err)
		b.sendMessage(chatID, service.Describe(err), nil)
		return
	}
	if len(pending) == 0 {
		b.clearPendingView(chatID)
		if origin != nil {
			edit := tgbotapi.NewEditMessageText(chatID, origin.MessageID, "✅ No pending transactions.")
			if _, err := b.API.Request(edit); err != nil {
				b.logger.Errorf("Failed to edit pending page: %v", err)
			}
			return
		}
		b.sendMessage(chatID, "✅ No pending transactions.", nil)
		return
	}

	start := page * pendingPerPage
	if start >= len(pending) || start < 0 {
		start = 0
		page = 0
	}
	end := min(start+pendingPerPage, len(pending))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📥 Pending Transactions (page %d of %d):\n\n", page+1, (len(pending)-1)/pendingPerPage+1))
	keyboardRows := make([][]tgbotapi.InlineKeyboardButton, 0, end-start+1)
	for _, entry := range pending[start:end] {
		tx := entry.Transaction
		sb.WriteString(fmt.Sprintf("User: %s\nCrypto: %s\nTXID: %s\nAmount: $%s\n\n", entry.UserID, tx.Crypto, tx.TxID, tx.Amount.String()))
		keyboardRows = append(keyboardRows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+truncate(tx.TxID, 10), callback.Approve(entry.UserID, tx.TxID).Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ "+truncate(tx.TxID, 10), callback.Reject(entry.UserID, tx.TxID).Encode()),
		))
	}
	if len(pending) > pendingPerPage {
		paginationRow := make([]tgbotapi.InlineKeyboardButton, 0, 2)
		if page > 0 {
			paginationRow = append(paginationRow, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("%s%d", pendingPagePrefix, page-1)))
		}
		if end < len(pending) {
			paginationRow = append(paginationRow, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("%s%d", pendingPagePrefix, page+1)))
		}
		keyboardRows = append(keyboardRows, paginationRow)
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(keyboardRows...)

	if origin != nil {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, origin.MessageID, sb.String(), keyboard)
		if _, err := b.API.Request(edit); err != nil {
			b.logger.Errorf("Failed to edit pending page: %v", err)
		}
		b.setPendingView(chatID, pendingView{messageID: origin.MessageID, page: page})
		return
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard
	sent, err := b.API.Send(msg)
	if err != nil {
		b.logger.Errorf("Failed to send pending page to %d: %v", chatID, err)
		return
	}
	b.setPendingView(chatID, pendingView{messageID: sent.MessageID, page: page})
}

func (b *Bot) handlePendingPage(ctx context.Context, query *tgbotapi.CallbackQuery) {
	page, err := strconv.Atoi(strings.TrimPrefix(query.Data, pendingPagePrefix))
	if err != nil {
		b.logger.Errorf("Invalid page number in callback: %v", err)
		b.answerCallback(query.ID, service.Describe(service.ErrMalformedPayload))
		return
	}
	b.showPending(ctx, query.Message.Chat.ID, formatID(query.From.ID), page, query.Message)
	b.answerCallback(query.ID, "")
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
