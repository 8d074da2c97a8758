package bot

import (
	"context"
	"sync"
	"time"

	"github.com/Fi44er/deposit_bot/internal/metrics"
	"github.com/Fi44er/deposit_bot/internal/service"
	"github.com/Fi44er/deposit_bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	API           telegramAPI
	service       *service.Service
	logger        *utils.Logger
	conversations map[int64]service.Conversation
	pendingViews  map[int64]pendingView
	stateMutex    *sync.Mutex
}

func NewBot(api telegramAPI, svc *service.Service, logger *utils.Logger) *Bot {
	return &Bot{
		API:           api,
		service:       svc,
		logger:        logger,
		conversations: make(map[int64]service.Conversation),
		pendingViews:  make(map[int64]pendingView),
		stateMutex:    &sync.Mutex{},
	}
}

// Start consumes updates until ctx is cancelled. Updates are handled one at
// a time.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("Starting bot...")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			b.logger.Info("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	kind := "other"
	switch {
	case update.CallbackQuery != nil:
		kind = "callback"
	case update.Message != nil && update.Message.IsCommand():
		kind = "command"
	case update.Message != nil:
		kind = "message"
	}

	started := time.Now()
	log := b.logger.WithField("correlation_id", uuid.NewString())
	log.Debugf("Received %s update %d", kind, update.UpdateID)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic while handling update %d: %v", update.UpdateID, r)
		}
		metrics.UpdateLatency.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}
