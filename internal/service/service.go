package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fi44er/deposit_bot/internal/metrics"
	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/Fi44er/deposit_bot/utils"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Load(ctx context.Context) (*models.Document, error)
	SaveAccount(ctx context.Context, userID string, account *models.Account) error
	SaveCatalog(ctx context.Context, catalog *models.Catalog) error
}

type Notifier interface {
	Notify(ctx context.Context, recipient string, msg Message) error
	Edit(ctx context.Context, origin Origin, msg Message) error
}

type AuditLogger interface {
	LogTransaction(event, userID, txID string, amount decimal.Decimal, status models.Status)
}

type Settings struct {
	AdminIDs      []string
	DepositAmount decimal.Decimal
	MinTxIDLength int
	// MaxCommitAttempts bounds how often a mutation is re-applied after an
	// optimistic version conflict.
	MaxCommitAttempts int
	BitcoinNet        *chaincfg.Params
}

type Service struct {
	repo     Repository
	notifier Notifier
	audit    AuditLogger
	admins   map[string]struct{}
	settings Settings
	logger   *utils.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, audit AuditLogger, settings Settings, logger *utils.Logger) *Service {
	admins := make(map[string]struct{}, len(settings.AdminIDs))
	for _, id := range settings.AdminIDs {
		admins[id] = struct{}{}
	}
	if settings.MaxCommitAttempts <= 0 {
		settings.MaxCommitAttempts = 1
	}
	if settings.BitcoinNet == nil {
		settings.BitcoinNet = &chaincfg.MainNetParams
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		audit:    audit,
		admins:   admins,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) IsAdmin(userID string) bool {
	_, ok := s.admins[userID]
	return ok
}

func (s *Service) DepositAmount() decimal.Decimal {
	return s.settings.DepositAmount
}

func (s *Service) AdminIDs() []string {
	return append([]string(nil), s.settings.AdminIDs...)
}

// Snapshot returns the current document for read-only use by one request.
func (s *Service) Snapshot(ctx context.Context) (*models.Document, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Errorf("Failed to load ledger: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return doc, nil
}

func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	acc := doc.Account(userID)
	if acc == nil {
		return decimal.Zero, nil
	}
	return acc.TotalConfirmed, nil
}

func (s *Service) PendingTransactions(ctx context.Context, adminID string) ([]models.PendingEntry, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Pending(), nil
}

// updateAccount runs load -> mutate -> save for one account. On a version
// conflict the document is reloaded and mutate runs again against fresh
// state, so mutate must be free of side effects outside doc.
func (s *Service) updateAccount(ctx context.Context, userID string, mutate func(doc *models.Document) (*models.Account, error)) (*models.Document, error) {
	for attempt := 1; ; attempt++ {
		doc, err := s.Snapshot(ctx)
		if err != nil {
			return nil, err
		}

		acc, err := mutate(doc)
		if err != nil {
			return nil, err
		}

		err = s.repo.SaveAccount(ctx, userID, acc)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, models.ErrDuplicateTxID) {
			return nil, ErrDuplicateTxID
		}
		if errors.Is(err, models.ErrVersionConflict) && attempt < s.settings.MaxCommitAttempts {
			metrics.CommitConflicts.Inc()
			s.logger.Warnf("Version conflict on account %s (attempt %d), retrying", userID, attempt)
			continue
		}
		s.logger.Errorf("Failed to save account %s: %v", userID, err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
}

func (s *Service) updateCatalog(ctx context.Context, mutate func(catalog *models.Catalog) error) (*models.Catalog, error) {
	for attempt := 1; ; attempt++ {
		doc, err := s.Snapshot(ctx)
		if err != nil {
			return nil, err
		}

		catalog := doc.Catalog.Clone()
		if err := mutate(&catalog); err != nil {
			return nil, err
		}

		err = s.repo.SaveCatalog(ctx, &catalog)
		if err == nil {
			return &catalog, nil
		}
		if errors.Is(err, models.ErrVersionConflict) && attempt < s.settings.MaxCommitAttempts {
			metrics.CommitConflicts.Inc()
			s.logger.Warnf("Version conflict on catalog (attempt %d), retrying", attempt)
			continue
		}
		s.logger.Errorf("Failed to save catalog: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
