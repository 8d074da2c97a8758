package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Transaction struct {
	TxID        string          `gorm:"primaryKey" json:"txid"`
	UserID      string          `gorm:"index" json:"-"`
	Crypto      string          `json:"crypto"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,8)" json:"amount"`
	Status      Status          `gorm:"default:pending" json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	AdminNote   string          `json:"admin_note,omitempty"`
}

type Account struct {
	UserID         string          `gorm:"primaryKey" json:"-"`
	Transactions   []*Transaction  `gorm:"foreignKey:UserID;references:UserID" json:"transactions"`
	TotalConfirmed decimal.Decimal `gorm:"type:numeric(20,8)" json:"total_confirmed"`
	Version        int64           `gorm:"not null;default:0" json:"version"`
}

// Catalog is the admin-appendable presentation state. Version guards
// concurrent admin edits the same way Account.Version guards balances.
type Catalog struct {
	ID        uint              `gorm:"primaryKey" json:"-" yaml:"-"`
	GiftCards []string          `gorm:"serializer:json" json:"giftcards" yaml:"giftcards"`
	Services  []string          `gorm:"serializer:json" json:"services" yaml:"services"`
	TopUps    []string          `gorm:"serializer:json" json:"topups" yaml:"topups"`
	MainMenu  [][]string        `gorm:"serializer:json" json:"main_menu" yaml:"main_menu"`
	Wallets   map[string]string `gorm:"serializer:json" json:"wallets" yaml:"wallets"`
	Version   int64             `gorm:"not null;default:0" json:"catalog_version" yaml:"-"`
}

type Document struct {
	Catalog
	Balances map[string]*Account `json:"balances"`
}

type PendingEntry struct {
	UserID      string
	Transaction *Transaction
}

func DefaultCatalog() Catalog {
	return Catalog{
		GiftCards: []string{"Amazon", "Google"},
		Services:  []string{"Netflix", "Prime Video"},
		TopUps: []string{
			"Bitcoin (BTC) Deposit",
			"Ethereum (ETH) Deposit",
			"USDT (TRC20) Deposit",
			"Litecoin (LTC) Deposit",
			"Tron (TRX) Deposit",
			"Cash App Deposit",
		},
		MainMenu: [][]string{
			{"🎁 Gift Card", "🏷️ Apply Coupon"},
			{"💸 Balance Top Ups", "👥 Referrals"},
			{"🎬 Streaming Service"},
		},
		Wallets: map[string]string{},
	}
}

func NewDocument(seed Catalog) *Document {
	doc := &Document{
		Catalog:  seed.Clone(),
		Balances: make(map[string]*Account),
	}
	return doc
}

func (c Catalog) Clone() Catalog {
	out := c
	out.GiftCards = append([]string(nil), c.GiftCards...)
	out.Services = append([]string(nil), c.Services...)
	out.TopUps = append([]string(nil), c.TopUps...)
	out.MainMenu = make([][]string, 0, len(c.MainMenu))
	for _, row := range c.MainMenu {
		out.MainMenu = append(out.MainMenu, append([]string(nil), row...))
	}
	out.Wallets = make(map[string]string, len(c.Wallets))
	for k, v := range c.Wallets {
		out.Wallets[k] = v
	}
	return out
}
