package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Asset describes a token as reported by the positions provider.
type Asset struct {
	Symbol   string           `json:"symbol"`
	Name     string           `json:"name,omitempty"`
	Address  string           `json:"address"`
	ChainID  int64            `json:"chainId,omitempty"`
	Decimals int              `json:"decimals"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	IconURL  string           `json:"iconUrl,omitempty"`

	priceErr error
}

// UnmarshalJSON decodes an asset leniently: a malformed price leaves Price nil and is
// reported by PriceError instead of failing the whole document.
func (a *Asset) UnmarshalJSON(data []byte) error {
	type plain Asset
	var aux struct {
		plain
		Price jsoniter.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Asset(aux.plain)
	a.Price, a.priceErr = parsePrice(aux.Price)
	return nil
}

// PriceError returns the decode error of a malformed price, or nil.
func (a Asset) PriceError() error {
	return a.priceErr
}

func parsePrice(raw []byte) (*decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("price %s: %w", raw, err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
	}
	d, err := ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	return &d, nil
}

// HasPrice returns true if the asset carries a per-unit price.
func (a Asset) HasPrice() bool {
	return a.Price != nil
}

// NormalizeAddress returns the EIP-55 checksum form of a hex address.
// Non-EVM identifiers (native markers, Solana mints, truncated ids) are returned unchanged.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// IsWalletAddress reports whether s is a well-formed EVM wallet address.
func IsWalletAddress(s string) bool {
	return common.IsHexAddress(s)
}
