package bot

import (
	"strconv"

	"github.com/Fi44er/deposit_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	menuMain      = "main"
	menuGiftCard  = "giftcard"
	menuTopUps    = "topups"
	menuReferrals = "referrals"
	menuServices  = "services"
	menuAdmin     = "admin"
)

const (
	labelBack             = "Back ↩️"
	labelMainMenu         = "🏠 Main Menu"
	labelAvailableBalance = "Available balance"
	labelGiftCard         = "🎁 Gift Card"
	labelTopUps           = "💸 Balance Top Ups"
	labelReferrals        = "👥 Referrals"
	labelServices         = "🎬 Streaming Service"
	labelViewOrders       = "📥 View Orders"
	labelApprove          = "✅ Approve"
	labelReject           = "❌ Reject"
)

func (b *Bot) getConversation(userID int64) service.Conversation {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	conv, ok := b.conversations[userID]
	if !ok {
		return service.Conversation{Menu: menuMain}
	}
	return conv
}

func (b *Bot) setConversation(userID int64, conv service.Conversation) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	b.conversations[userID] = conv
	b.logger.Debugf("Set conversation for user %d: menu=%s stage=%d", userID, conv.Menu, conv.Stage)
}

func (b *Bot) sendMessage(chatID int64, text string, replyMarkup interface{}) {
	b.sendFormatted(chatID, text, "", replyMarkup)
}

func (b *Bot) sendFormatted(chatID int64, text, parseMode string, replyMarkup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = true
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}
	if _, err := b.API.Send(msg); err != nil {
		b.logger.Errorf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) answerCallback(callbackID string, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.API.Request(callback); err != nil {
		b.logger.Errorf("Failed to answer callback: %v", err)
	}
}

func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			line = append(line, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, line)
	}
	keyboard := tgbotapi.NewReplyKeyboard(buttons...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func inlineKeyboard(controls [][]service.Control) *tgbotapi.InlineKeyboardMarkup {
	if len(controls) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(controls))
	for _, row := range controls {
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Payload))
		}
		rows = append(rows, line)
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

// pairs lays items out two per row, the way every catalog menu is shown.
func pairs(items []string) [][]string {
	rows := make([][]string, 0, len(items)/2+1)
	for i := 0; i < len(items); i += 2 {
		end := min(i+2, len(items))
		rows = append(rows, append([]string(nil), items[i:end]...))
	}
	return rows
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
