package utils

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// IsBitcoinCoin reports whether a top-up coin name refers to Bitcoin.
func IsBitcoinCoin(coin string) bool {
	switch strings.ToLower(strings.TrimSpace(coin)) {
	case "bitcoin", "btc":
		return true
	}
	return false
}

// ValidateBitcoinAddress checks that address decodes and belongs to params' network.
func ValidateBitcoinAddress(address string, params *chaincfg.Params) error {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return fmt.Errorf("invalid bitcoin address: %w", err)
	}
	if !addr.IsForNet(params) {
		return fmt.Errorf("address %s is not for %s", address, params.Name)
	}
	return nil
}
