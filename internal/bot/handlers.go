package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Fi44er/deposit_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const depositHint = "🗒\nMade a Deposit? Enter transaction ID here.\n\n" +
	"To obtain a <a href='https://youtu.be/yh6Oy-nkPd8?si=dhd_BSiE78-QIBsP'>transaction ID</a>, " +
	"you can typically find it in your wallet or on the exchange platform."

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	b.logger.Infof("Processing message from user %d: %s", msg.From.ID, msg.Text)

	b.withConversation(msg.From.ID, func(conv service.Conversation) service.Conversation {
		if msg.IsCommand() {
			return b.handleCommand(ctx, msg, conv)
		}

		switch conv.Stage {
		case service.StageAwaitingNote:
			return b.handleNoteText(ctx, msg, conv)
		case service.StageAwaitingDeposit:
			if !isNavigation(msg.Text) {
				return b.handleDepositText(ctx, msg, conv)
			}
			conv = conv.Idle()
		}

		return b.handleMenuText(ctx, msg, conv)
	})
}

// isNavigation reports whether text is a keyboard button that should leave
// the deposit stage rather than be taken as a transaction id.
func isNavigation(text string) bool {
	switch text {
	case labelBack, labelMainMenu, labelAvailableBalance:
		return true
	}
	return strings.Contains(text, "Deposit")
}

func (b *Bot) handleNoteText(ctx context.Context, msg *tgbotapi.Message, conv service.Conversation) service.Conversation {
	next, err := b.service.CaptureNote(ctx, formatID(msg.From.ID), conv, msg.Text)
	if err != nil {
		b.logger.Warnf("Note from %d not attached: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, service.Describe(err), nil)
	}
	return next
}

func (b *Bot) handleDepositText(ctx context.Context, msg *tgbotapi.Message, conv service.Conversation) service.Conversation {
	_, err := b.service.SubmitDeposit(ctx, service.Submission{
		UserID: formatID(msg.From.ID),
		Crypto: conv.Coin,
		TxID:   msg.Text,
		Submitter: service.Submitter{
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Username:  msg.From.UserName,
		},
	})
	if err != nil {
		// the user stays in the deposit stage and may send another id
		b.sendMessage(msg.Chat.ID, service.Describe(err), nil)
		return conv
	}
	return conv.Idle()
}

func (b *Bot) handleMenuText(ctx context.Context, msg *tgbotapi.Message, conv service.Conversation) service.Conversation {
	text := msg.Text
	chatID := msg.Chat.ID

	if text == labelBack || text == labelMainMenu {
		return b.showMainMenu(ctx, chatID, conv, "🏠 Back to main menu:")
	}

	switch conv.Menu {
	case menuGiftCard:
		b.handleGiftCard(ctx, chatID, text)
	case menuTopUps:
		return b.handleTopUps(ctx, msg, conv)
	case menuReferrals:
		b.sendMessage(chatID, "👥 Referral feature is under development.", replyKeyboard([][]string{{labelBack}}))
	case menuServices:
		b.handleServices(ctx, chatID, text)
	case menuAdmin:
		b.handleAdminMenu(ctx, msg)
	default:
		return b.handleMainMenu(ctx, chatID, conv, text)
	}
	return conv
}

func (b *Bot) showMainMenu(ctx context.Context, chatID int64, conv service.Conversation, text string) service.Conversation {
	doc, err := b.service.Snapshot(ctx)
	if err != nil {
		b.sendMessage(chatID, service.Describe(err), nil)
		return conv.WithMenu(menuMain)
	}
	b.sendMessage(chatID, text, replyKeyboard(doc.MainMenu))
	return conv.Idle().WithMenu(menuMain)
}

func (b *Bot) handleMainMenu(ctx context.Context, chatID int64, conv service.Conversation, text string) service.Conversation {
	if text == labelReferrals {
		b.sendMessage(chatID, "👥 Referral menu (coming soon)", replyKeyboard([][]string{{labelBack}}))
		return conv.WithMenu(menuReferrals)
	}
	if text != labelGiftCard && text != labelTopUps && text != labelServices {
		b.logger.Debugf("Ignoring unknown main menu text %q", text)
		return conv
	}

	doc, err := b.service.Snapshot(ctx)
	if err != nil {
		b.sendMessage(chatID, service.Describe(err), nil)
		return conv
	}

	switch text {
	case labelGiftCard:
		rows := append(pairs(doc.GiftCards), []string{labelBack})
		b.sendMessage(chatID, "🎁 Choose Gift Card:", replyKeyboard(rows))
		return conv.WithMenu(menuGiftCard)
	case labelTopUps:
		rows := append(pairs(doc.TopUps), []string{labelAvailableBalance, labelBack})
		b.sendMessage(chatID, "💰 Choose top-up method:", replyKeyboard(rows))
		return conv.WithMenu(menuTopUps)
	default:
		rows := append(pairs(doc.Services), []string{labelBack})
		b.sendMessage(chatID, "🎬 Choose a streaming service:", replyKeyboard(rows))
		return conv.WithMenu(menuServices)
	}
}

func (b *Bot) handleGiftCard(ctx context.Context, chatID int64, text string) {
	doc, err := b.service.Snapshot(ctx)
	if err != nil {
		b.sendMessage(chatID, service.Describe(err), nil)
		return
	}
	if slices.Contains(doc.GiftCards, text) {
		b.sendMessage(chatID, fmt.Sprintf("✅ You selected %s. Purchase flow coming soon!", text), nil)
	}
}

func (b *Bot) handleServices(ctx context.Context, chatID int64, text string) {
	doc, err := b.service.Snapshot(ctx)
	if err != nil {
		b.sendMessage(chatID, service.Describe(err), nil)
		return
	}
	if slices.Contains(doc.Services, text) {
		b.sendMessage(chatID, fmt.Sprintf("🎬 You selected %s. More features coming soon!", text), nil)
	}
}

func (b *Bot) handleTopUps(ctx context.Context, msg *tgbotapi.Message, conv service.Conversation) service.Conversation {
	chatID := msg.Chat.ID
	text := msg.Text

	switch {
	case strings.Contains(text, "Deposit"):
		doc, err := b.service.Snapshot(ctx)
		if err != nil {
			b.sendMessage(chatID, service.Describe(err), nil)
			return conv
		}
		coin := service.CoinFromTopUp(text)
		instructions := fmt.Sprintf(
			"Send only %s to the address below and then send your transaction ID by typing it here.\n\n"+
				"💵 Minimum deposit: $%s\n"+
				"🔗 Wallet Address: `%s`\n\n"+
				"Once sent, click on Available Balance and then reply with your transaction hash/ID to submit.",
			coin,
			b.service.DepositAmount().String(),
			strings.ReplaceAll(service.WalletAddress(doc.Catalog, coin), "`", "'"),
		)
		b.sendFormatted(chatID, instructions, tgbotapi.ModeMarkdown, nil)
		conv = conv.AwaitDeposit(coin)
	case text == labelAvailableBalance:
		balance, err := b.service.Balance(ctx, formatID(msg.From.ID))
		if err != nil {
			b.sendMessage(chatID, service.Describe(err), nil)
			return conv
		}
		b.sendMessage(chatID, fmt.Sprintf("Balance: 💲%s", balance.StringFixed(2)), nil)
	}

	b.sendFormatted(chatID, depositHint, tgbotapi.ModeHTML, nil)
	return conv
}

func (b *Bot) handleAdminMenu(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Text {
	case labelViewOrders:
		b.showPending(ctx, msg.Chat.ID, formatID(msg.From.ID), 0, nil)
	case labelApprove, labelReject:
		b.sendMessage(msg.Chat.ID, "Use the buttons under a pending transaction to decide it.", nil)
	}
}
