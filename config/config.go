package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
)

type Config struct {
	TelegramBotToken  string   `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminIDs          []string `mapstructure:"ADMIN_IDS"`
	StorageDriver     string   `mapstructure:"STORAGE_DRIVER"`
	DB_URL            string   `mapstructure:"DB_URL"`
	DataFile          string   `mapstructure:"DATA_FILE"`
	AuditLogFile      string   `mapstructure:"AUDIT_LOG_FILE"`
	CatalogSeedFile   string   `mapstructure:"CATALOG_SEED_FILE"`
	DepositAmount     string   `mapstructure:"DEPOSIT_AMOUNT"`
	MinTxIDLength     int      `mapstructure:"MIN_TXID_LENGTH"`
	MaxCommitAttempts int      `mapstructure:"MAX_COMMIT_ATTEMPTS"`
	BitcoinNetwork    string   `mapstructure:"BITCOIN_NETWORK"`
	MetricsAddr       string   `mapstructure:"METRICS_ADDR"`
	LogLevel          string   `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"TELEGRAM_BOT_TOKEN":  "",
	"ADMIN_IDS":           []string{},
	"STORAGE_DRIVER":      StorageFile,
	"DB_URL":              "",
	"DATA_FILE":           "user_data/data.json",
	"AUDIT_LOG_FILE":      "transaction_audit.log",
	"CATALOG_SEED_FILE":   "",
	"DEPOSIT_AMOUNT":      "100",
	"MIN_TXID_LENGTH":     10,
	"MAX_COMMIT_ATTEMPTS": 3,
	"BITCOIN_NETWORK":     "mainnet",
	"METRICS_ADDR":        "",
	"LOG_LEVEL":           "info",
}

// LoadConfig reads the env file at path, with process environment taking
// precedence. A missing file is not an error.
func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("failed to resolve config path: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AddConfigPath(filepath.Dir(absPath))
	v.SetConfigName(filepath.Base(absPath))
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	config.AdminIDs = normalizeIDs(config.AdminIDs)

	return config, config.Validate()
}

func (c Config) Validate() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if len(c.AdminIDs) == 0 {
		return errors.New("ADMIN_IDS must list at least one administrator")
	}
	for _, id := range c.AdminIDs {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("invalid admin id %q: %w", id, err)
		}
	}
	amount, err := c.Amount()
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return errors.New("DEPOSIT_AMOUNT must not be negative")
	}
	if c.MinTxIDLength <= 0 {
		return errors.New("MIN_TXID_LENGTH must be positive")
	}
	if c.MaxCommitAttempts <= 0 {
		return errors.New("MAX_COMMIT_ATTEMPTS must be positive")
	}
	switch c.StorageDriver {
	case StorageFile:
	case StoragePostgres, StorageMySQL:
		if c.DB_URL == "" {
			return fmt.Errorf("DB_URL is required for %s storage", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

func (c Config) Amount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.DepositAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid DEPOSIT_AMOUNT %q: %w", c.DepositAmount, err)
	}
	return amount, nil
}

// LoadCatalogSeed returns the catalog a fresh ledger starts with. An empty
// path yields the built-in catalog.
func LoadCatalogSeed(path string) (models.Catalog, error) {
	if path == "" {
		return models.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("failed to read catalog seed: %w", err)
	}

	seed := models.DefaultCatalog()
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return models.Catalog{}, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	if seed.Wallets == nil {
		seed.Wallets = map[string]string{}
	}
	return seed, nil
}

// viper splits "1, 2" into ["1", " 2"]; a single env var may also arrive
// as one unsplit element.
func normalizeIDs(raw []string) []string {
	var ids []string
	for _, item := range raw {
		for _, id := range strings.Split(item, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
