package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/Fi44er/deposit_bot/utils"
)

var coinPattern = regexp.MustCompile(`^(.*?)\s*(\(|Deposit)`)

// CoinFromTopUp extracts the coin name from a top-up button label such as
// "Bitcoin (BTC) Deposit".
func CoinFromTopUp(label string) string {
	if m := coinPattern.FindStringSubmatch(label); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.Replace(label, " Deposit", "", 1))
}

// WalletAddress returns the configured deposit address for coin, or a
// placeholder when none is set.
func WalletAddress(catalog models.Catalog, coin string) string {
	if addr, ok := catalog.Wallets[coin]; ok && addr != "" {
		return addr
	}
	return fmt.Sprintf("(dummy_wallet_address_for_%s)", strings.ToLower(coin))
}

func (s *Service) AddGiftCard(ctx context.Context, adminID, name string) (*models.Catalog, error) {
	return s.appendCatalogItem(ctx, adminID, name, func(c *models.Catalog) *[]string { return &c.GiftCards })
}

func (s *Service) AddService(ctx context.Context, adminID, name string) (*models.Catalog, error) {
	return s.appendCatalogItem(ctx, adminID, name, func(c *models.Catalog) *[]string { return &c.Services })
}

// AddTopUp adds a top-up method. Labels without "Deposit" would never be
// routed to the deposit flow, so the suffix is added when missing.
func (s *Service) AddTopUp(ctx context.Context, adminID, label string) (*models.Catalog, error) {
	label = strings.TrimSpace(label)
	if label != "" && !strings.Contains(label, "Deposit") {
		label += " Deposit"
	}
	return s.appendCatalogItem(ctx, adminID, label, func(c *models.Catalog) *[]string { return &c.TopUps })
}

// SetWallet stores the deposit address shown for coin. Bitcoin addresses
// are checked against the configured network.
func (s *Service) SetWallet(ctx context.Context, adminID, coin, address string) (*models.Catalog, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	coin, address = strings.TrimSpace(coin), strings.TrimSpace(address)
	if coin == "" || address == "" {
		return nil, invalidInput("Usage: /setwallet <coin> <address>")
	}
	if utils.IsBitcoinCoin(coin) {
		if err := utils.ValidateBitcoinAddress(address, s.settings.BitcoinNet); err != nil {
			s.logger.Warnf("Rejected wallet for %s: %v", coin, err)
			return nil, invalidInput("Invalid %s address for %s.", coin, s.settings.BitcoinNet.Name)
		}
	}

	catalog, err := s.updateCatalog(ctx, func(c *models.Catalog) error {
		if c.Wallets == nil {
			c.Wallets = make(map[string]string)
		}
		c.Wallets[coin] = address
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Admin %s set %s wallet", adminID, coin)
	return catalog, nil
}

func (s *Service) appendCatalogItem(ctx context.Context, adminID, item string, list func(*models.Catalog) *[]string) (*models.Catalog, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, invalidInput("Please provide a name.")
	}

	catalog, err := s.updateCatalog(ctx, func(c *models.Catalog) error {
		// names are not unique; a repeated add is appended again
		items := list(c)
		*items = append(*items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Admin %s added catalog item %q", adminID, item)
	return catalog, nil
}
