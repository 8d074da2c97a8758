package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fi44er/deposit_bot/config"
	"github.com/Fi44er/deposit_bot/db"
	"github.com/Fi44er/deposit_bot/internal/audit"
	"github.com/Fi44er/deposit_bot/internal/bot"
	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/Fi44er/deposit_bot/internal/repository"
	"github.com/Fi44er/deposit_bot/internal/server"
	"github.com/Fi44er/deposit_bot/internal/service"
	"github.com/Fi44er/deposit_bot/utils"
	"github.com/btcsuite/btcd/chaincfg"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		utils.InitLogger("info").Fatal("Failed to load config: ", err)
	}
	logger := utils.InitLogger(cfg.LogLevel)

	seed, err := config.LoadCatalogSeed(cfg.CatalogSeedFile)
	if err != nil {
		logger.Fatal(err)
	}

	repo, err := newRepository(cfg, seed, logger)
	if err != nil {
		logger.Fatal(err)
	}

	auditLog, err := audit.Open(cfg.AuditLogFile)
	if err != nil {
		logger.Errorf("Audit log unavailable, continuing without it: %v", err)
		auditLog = audit.Discard()
	}
	defer auditLog.Close()

	amount, err := cfg.Amount()
	if err != nil {
		logger.Fatal(err)
	}

	telegramBot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal("Failed to create bot API: ", err)
	}
	logger.Infof("Authorized as @%s", telegramBot.Self.UserName)

	depositService := service.NewService(repo, bot.NewTelegramNotifier(telegramBot), auditLog, service.Settings{
		AdminIDs:          cfg.AdminIDs,
		DepositAmount:     amount,
		MinTxIDLength:     cfg.MinTxIDLength,
		MaxCommitAttempts: cfg.MaxCommitAttempts,
		BitcoinNet:        bitcoinParams(cfg.BitcoinNetwork),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := server.New(cfg.MetricsAddr, server.ProberFunc(func(ctx context.Context) error {
			_, err := repo.Load(ctx)
			return err
		}), logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	bot.NewBot(telegramBot, depositService, logger).Start(ctx)
}

func newRepository(cfg config.Config, seed models.Catalog, logger *utils.Logger) (service.Repository, error) {
	if cfg.StorageDriver == config.StorageFile {
		return repository.NewFileRepository(cfg.DataFile, seed, logger)
	}

	database, err := db.ConnectDb(cfg.StorageDriver, cfg.DB_URL, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, logger); err != nil {
		return nil, err
	}
	return repository.NewRepository(database, seed, logger), nil
}

func bitcoinParams(network string) *chaincfg.Params {
	switch network {
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	case "signet":
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.MainNetParams
	}
}
