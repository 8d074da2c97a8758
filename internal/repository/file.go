package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/Fi44er/deposit_bot/utils"
	"github.com/shopspring/decimal"
)

var ErrCorrupt = errors.New("ledger document is corrupt")

func init() {
	// keep amounts as JSON numbers in the document
	decimal.MarshalJSONWithoutQuotes = true
}

// FileRepository keeps the whole ledger in one JSON document. Writes are
// compare-and-swap on the per-account version and replace the file
// atomically, so two writers touching different accounts never clobber
// each other.
type FileRepository struct {
	path   string
	seed   models.Catalog
	mu     sync.Mutex
	logger *utils.Logger
}

func NewFileRepository(path string, seed models.Catalog, logger *utils.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileRepository{path: path, seed: seed, logger: logger}, nil
}

func (r *FileRepository) Load(ctx context.Context) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if errors.Is(err, os.ErrNotExist) {
		r.logger.Infof("Ledger %s not found, creating default document", r.path)
		doc = models.NewDocument(r.seed)
		if err := r.write(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *FileRepository) SaveAccount(ctx context.Context, userID string, account *models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.currentOrDefault()
	if err != nil {
		return err
	}

	var storedVersion int64
	if stored, ok := current.Balances[userID]; ok {
		storedVersion = stored.Version
	}
	if storedVersion != account.Version {
		return fmt.Errorf("account %s: stored version %d, loaded %d: %w", userID, storedVersion, account.Version, models.ErrVersionConflict)
	}

	held := make(map[string]string)
	for uid, other := range current.Balances {
		if uid == userID {
			continue
		}
		for _, tx := range other.Transactions {
			held[tx.TxID] = uid
		}
	}
	for _, tx := range account.Transactions {
		if owner, ok := held[tx.TxID]; ok {
			return fmt.Errorf("txid %s held by %s: %w", tx.TxID, owner, models.ErrDuplicateTxID)
		}
	}

	next := *account
	next.UserID = userID
	next.Version = account.Version + 1
	current.Balances[userID] = &next

	if err := r.write(current); err != nil {
		return err
	}
	account.Version = next.Version
	return nil
}

func (r *FileRepository) SaveCatalog(ctx context.Context, catalog *models.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.currentOrDefault()
	if err != nil {
		return err
	}
	if current.Catalog.Version != catalog.Version {
		return fmt.Errorf("catalog: stored version %d, loaded %d: %w", current.Catalog.Version, catalog.Version, models.ErrVersionConflict)
	}

	next := catalog.Clone()
	next.Version = catalog.Version + 1
	current.Catalog = next

	if err := r.write(current); err != nil {
		return err
	}
	catalog.Version = next.Version
	return nil
}

func (r *FileRepository) currentOrDefault() (*models.Document, error) {
	doc, err := r.read()
	if errors.Is(err, os.ErrNotExist) {
		return models.NewDocument(r.seed), nil
	}
	return doc, err
}

func (r *FileRepository) read() (*models.Document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, r.path, err)
	}
	if doc.Balances == nil {
		doc.Balances = make(map[string]*models.Account)
	}
	if doc.Wallets == nil {
		doc.Wallets = make(map[string]string)
	}
	for uid, acc := range doc.Balances {
		if acc == nil {
			return nil, fmt.Errorf("%w: %s: null account %s", ErrCorrupt, r.path, uid)
		}
		acc.UserID = uid
		for _, tx := range acc.Transactions {
			tx.UserID = uid
		}
	}
	return &doc, nil
}

func (r *FileRepository) write(doc *models.Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
