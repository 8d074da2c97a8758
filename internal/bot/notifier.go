package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Fi44er/deposit_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers service messages as Telegram chat messages.
// Recipients are chat ids in decimal form.
type TelegramNotifier struct {
	api telegramAPI
}

func NewTelegramNotifier(api telegramAPI) *TelegramNotifier {
	return &TelegramNotifier{api: api}
}

func (n *TelegramNotifier) Notify(ctx context.Context, recipient string, msg service.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseChatID(recipient)
	if err != nil {
		return err
	}

	out := tgbotapi.NewMessage(chatID, msg.Text)
	if msg.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	if keyboard := inlineKeyboard(msg.Controls); keyboard != nil {
		out.ReplyMarkup = *keyboard
	}
	if _, err := n.api.Send(out); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// Edit replaces the text and buttons of an existing message. A message
// without controls loses its keyboard.
func (n *TelegramNotifier) Edit(ctx context.Context, origin service.Origin, msg service.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseChatID(origin.ChatID)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, origin.MessageID, msg.Text)
	if msg.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	edit.ReplyMarkup = inlineKeyboard(msg.Controls)
	if _, err := n.api.Request(edit); err != nil {
		return fmt.Errorf("failed to edit message %d in %d: %w", origin.MessageID, chatID, err)
	}
	return nil
}

func parseChatID(raw string) (int64, error) {
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", raw, err)
	}
	return chatID, nil
}
