package db

import (
	"fmt"
	"time"

	"github.com/Fi44er/deposit_bot/config"
	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/Fi44er/deposit_bot/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	connectInterval = 2 * time.Second
)

// ConnectDb opens a pooled connection for the given storage driver. Driver
// errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func ConnectDb(driver, url string, log *utils.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.StoragePostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  url,
			PreferSimpleProtocol: true,
		})
	case config.StorageMySQL:
		dialector = mysql.Open(url)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormConfig := &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Error),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}
		log.Warnf("Failed to connect to %s (attempt %d/%d): %v", driver, attempt, connectAttempts, err)
		if attempt < connectAttempts {
			time.Sleep(connectInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	log.Info("✅ Database connection successfully")

	log.Info("📦 Setting database connection pool...")
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func Migrate(db *gorm.DB, log *utils.Logger) error {
	log.Info("📦 Migrating database...")
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
		&models.Catalog{},
	); err != nil {
		log.Errorf("✖ Failed to migrate database: %v", err)
		return err
	}
	log.Info("✅ Database migrated")
	return nil
}
