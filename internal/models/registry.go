package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FindTransaction looks up txID among the user's transactions.
// Both results are nil when the account or the transaction is absent.
func (d *Document) FindTransaction(userID, txID string) (*Account, *Transaction) {
	acc, ok := d.Balances[userID]
	if !ok {
		return nil, nil
	}
	for _, tx := range acc.Transactions {
		if tx.TxID == txID {
			return acc, tx
		}
	}
	return acc, nil
}

// FindTransactionPrefix resolves a truncated txid. It only succeeds when
// exactly one of the user's transactions starts with prefix.
func (d *Document) FindTransactionPrefix(userID, prefix string) (*Account, *Transaction) {
	acc, ok := d.Balances[userID]
	if !ok || prefix == "" {
		return nil, nil
	}
	var found *Transaction
	for _, tx := range acc.Transactions {
		if strings.HasPrefix(tx.TxID, prefix) {
			if found != nil {
				return acc, nil
			}
			found = tx
		}
	}
	return acc, found
}

// TxIDExists scans every account, not only the submitter's.
func (d *Document) TxIDExists(txID string) bool {
	for _, acc := range d.Balances {
		for _, tx := range acc.Transactions {
			if tx.TxID == txID {
				return true
			}
		}
	}
	return false
}

func (d *Document) Account(userID string) *Account {
	return d.Balances[userID]
}

func (d *Document) EnsureAccount(userID string) *Account {
	if d.Balances == nil {
		d.Balances = make(map[string]*Account)
	}
	acc, ok := d.Balances[userID]
	if !ok {
		acc = &Account{UserID: userID, Transactions: []*Transaction{}}
		d.Balances[userID] = acc
	}
	return acc
}

func (d *Document) CreateTransaction(userID, txID, crypto string, amount decimal.Decimal, at time.Time) *Transaction {
	acc := d.EnsureAccount(userID)
	tx := &Transaction{
		TxID:      txID,
		UserID:    userID,
		Crypto:    crypto,
		Amount:    amount,
		Status:    StatusPending,
		Timestamp: at,
	}
	acc.Transactions = append(acc.Transactions, tx)
	return tx
}

// Pending lists pending transactions ordered by user id, then submission order.
func (d *Document) Pending() []PendingEntry {
	users := make([]string, 0, len(d.Balances))
	for uid := range d.Balances {
		users = append(users, uid)
	}
	sort.Strings(users)

	var out []PendingEntry
	for _, uid := range users {
		for _, tx := range d.Balances[uid].Transactions {
			if tx.Status == StatusPending {
				out = append(out, PendingEntry{UserID: uid, Transaction: tx})
			}
		}
	}
	return out
}

func (t *Transaction) IsDecided() bool {
	return t.Status != StatusPending
}

func (t *Transaction) Approve(at time.Time) error {
	return t.decide(StatusApproved, at)
}

func (t *Transaction) Reject(at time.Time) error {
	return t.decide(StatusRejected, at)
}

func (t *Transaction) decide(status Status, at time.Time) error {
	if t.Status != StatusPending {
		return &AlreadyProcessedError{Status: t.Status}
	}
	t.Status = status
	processed := at
	t.ProcessedAt = &processed
	return nil
}

func (a *Account) Credit(amount decimal.Decimal) {
	a.TotalConfirmed = a.TotalConfirmed.Add(amount)
}
