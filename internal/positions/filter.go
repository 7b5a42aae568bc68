package positions

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
)

// PrefersToken reports whether a raw position is better shown as plain wallet tokens: all of
// its supply tokens are token-preferred symbols and it carries no debt.
func (r *Registry) PrefersToken(raw domain.RawPosition) bool {
	supply := raw.Tokens.SupplyTokenList
	if len(supply) == 0 || len(raw.Tokens.BorrowTokenList) > 0 {
		return false
	}
	return lo.EveryBy(supply, func(t domain.TokenEntry) bool {
		return t.Asset != nil && r.IsTokenPreferred(t.Asset.Symbol)
	})
}

// BelowThreshold reports whether a protocol's absolute total is under minValue.
func BelowThreshold(p domain.ProtocolPosition, minValue decimal.Decimal) bool {
	return domain.SafeParse(p.Totals.Total.Amount).Abs().LessThan(minValue)
}
