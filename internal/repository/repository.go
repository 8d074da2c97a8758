package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/Fi44er/deposit_bot/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const catalogID = 1

// Repository stores accounts, transactions and the catalog as rows.
// Optimistic versions live in accounts.version and catalogs.version;
// tx_id is the primary key, so a txid can exist only once.
type Repository struct {
	db     *gorm.DB
	seed   models.Catalog
	logger *utils.Logger
}

func NewRepository(db *gorm.DB, seed models.Catalog, logger *utils.Logger) *Repository {
	return &Repository{db: db, seed: seed, logger: logger}
}

func (r *Repository) Load(ctx context.Context) (*models.Document, error) {
	catalog, err := r.getOrCreateCatalog(ctx)
	if err != nil {
		return nil, err
	}

	var accounts []*models.Account
	err = r.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		Find(&accounts).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	doc := &models.Document{
		Catalog:  *catalog,
		Balances: make(map[string]*models.Account, len(accounts)),
	}
	if doc.Wallets == nil {
		doc.Wallets = make(map[string]string)
	}
	for _, acc := range accounts {
		if acc.Transactions == nil {
			acc.Transactions = []*models.Transaction{}
		}
		doc.Balances[acc.UserID] = acc
	}
	return doc, nil
}

func (r *Repository) getOrCreateCatalog(ctx context.Context) (*models.Catalog, error) {
	var catalog models.Catalog
	err := r.db.WithContext(ctx).First(&catalog, "id = ?", catalogID).Error
	if err == nil {
		return &catalog, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	r.logger.Info("📦 Seeding catalog...")
	catalog = r.seed.Clone()
	catalog.ID = catalogID
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&catalog).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	return &catalog, nil
}

func (r *Repository) SaveAccount(ctx context.Context, userID string, account *models.Account) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if account.Version == 0 {
			var n int64
			if err := tx.Model(&models.Account{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to check account: %w", err)
			}
			if n > 0 {
				return fmt.Errorf("account %s created concurrently: %w", userID, models.ErrVersionConflict)
			}
			row := &models.Account{UserID: userID, TotalConfirmed: account.TotalConfirmed, Version: 1}
			if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("account %s created concurrently: %w", userID, models.ErrVersionConflict)
				}
				return fmt.Errorf("failed to create account: %w", err)
			}
		} else {
			res := tx.Model(&models.Account{}).
				Where("user_id = ? AND version = ?", userID, account.Version).
				Updates(map[string]any{
					"total_confirmed": account.TotalConfirmed,
					"version":         gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to update account: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("account %s at version %d: %w", userID, account.Version, models.ErrVersionConflict)
			}
		}

		var existing []string
		err := tx.Model(&models.Transaction{}).
			Where("user_id = ?", userID).
			Pluck("tx_id", &existing).
			Error
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		known := make(map[string]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}

		for _, t := range account.Transactions {
			t.UserID = userID
			if known[t.TxID] {
				err = tx.Model(&models.Transaction{}).
					Where("tx_id = ? AND user_id = ?", t.TxID, userID).
					Updates(map[string]any{
						"status":       t.Status,
						"processed_at": t.ProcessedAt,
						"admin_note":   t.AdminNote,
					}).
					Error
			} else {
				// tx_id is global; another account may already hold it
				var n int64
				if err := tx.Model(&models.Transaction{}).Where("tx_id = ?", t.TxID).Count(&n).Error; err != nil {
					return fmt.Errorf("failed to check transaction %s: %w", t.TxID, err)
				}
				if n > 0 {
					return fmt.Errorf("txid %s: %w", t.TxID, models.ErrDuplicateTxID)
				}
				err = tx.Create(t).Error
				if isUniqueViolation(err) {
					return fmt.Errorf("txid %s: %w", t.TxID, models.ErrDuplicateTxID)
				}
			}
			if err != nil {
				return fmt.Errorf("failed to save transaction %s: %w", t.TxID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	account.Version++
	return nil
}

func (r *Repository) SaveCatalog(ctx context.Context, catalog *models.Catalog) error {
	next := catalog.Clone()
	next.ID = catalogID
	next.Version = catalog.Version + 1

	res := r.db.WithContext(ctx).
		Model(&models.Catalog{ID: catalogID}).
		Where("version = ?", catalog.Version).
		Select("GiftCards", "Services", "TopUps", "MainMenu", "Wallets", "Version").
		Updates(&next)
	if res.Error != nil {
		return fmt.Errorf("failed to update catalog: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("catalog at version %d: %w", catalog.Version, models.ErrVersionConflict)
	}

	catalog.Version = next.Version
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
