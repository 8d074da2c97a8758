package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Fi44er/deposit_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleCommand runs a slash command. Any command ends note capture without
// attaching a note. /start, /cancel and /admin also end the deposit stage.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, conv service.Conversation) service.Conversation {
	chatID := msg.Chat.ID
	userID := formatID(msg.From.ID)
	args := strings.TrimSpace(msg.CommandArguments())

	if conv.Stage == service.StageAwaitingNote {
		conv = conv.Idle()
	}

	switch msg.Command() {
	case "start":
		return b.showMainMenu(ctx, chatID, conv, "👋 Welcome!")
	case "cancel":
		return b.showMainMenu(ctx, chatID, conv, "❎ Cancelled.")
	case "admin":
		if !b.service.IsAdmin(userID) {
			b.sendMessage(chatID, "⛔ You are not authorized to access the admin panel.", nil)
			return conv
		}
		keyboard := replyKeyboard([][]string{
			{labelViewOrders, labelApprove, labelReject},
			{labelMainMenu},
		})
		b.sendMessage(chatID, "👮 Welcome to the Admin Panel:", keyboard)
		return conv.Idle().WithMenu(menuAdmin)
	case "showpending":
		b.showPending(ctx, chatID, userID, 0, nil)
	case "addgift":
		if _, err := b.service.AddGiftCard(ctx, userID, args); err != nil {
			b.sendMessage(chatID, service.Describe(err), nil)
			return conv
		}
		b.sendMessage(chatID, fmt.Sprintf("✅ Gift card '%s' added!", args), nil)
	case "addservice":
		if _, err := b.service.AddService(ctx, userID, args); err != nil {
			b.sendMessage(chatID, service.Describe(err), nil)
			return conv
		}
		b.sendMessage(chatID, fmt.Sprintf("✅ Streaming service '%s' added!", args), nil)
	case "addtopup":
		catalog, err := b.service.AddTopUp(ctx, userID, args)
		if err != nil {
			b.sendMessage(chatID, service.Describe(err), nil)
			return conv
		}
		b.sendMessage(chatID, fmt.Sprintf("✅ Top-up method '%s' added!", catalog.TopUps[len(catalog.TopUps)-1]), nil)
	case "setwallet":
		coin, address := splitWalletArgs(args)
		if _, err := b.service.SetWallet(ctx, userID, coin, address); err != nil {
			b.sendMessage(chatID, service.Describe(err), nil)
			return conv
		}
		b.sendMessage(chatID, fmt.Sprintf("✅ %s wallet set to %s", coin, address), nil)
	default:
		b.sendMessage(chatID, "Unknown command. Use the menu.", nil)
	}
	return conv
}

// splitWalletArgs treats the last word as the address so coin names may
// contain spaces ("Cash App").
func splitWalletArgs(args string) (coin, address string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", ""
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
}
