package positions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
)

// ErrMissingAsset is returned when a token entry carries no asset data.
var ErrMissingAsset = errors.New("token entry has no asset")

// ResolvedValue is the monetary outcome for a single token entry.
type ResolvedValue struct {
	Quantity string
	Value    domain.MonetaryAmount
	// Decimal is the numeric value used for totals and allocation.
	Decimal decimal.Decimal
}

// ResolveValue computes the native-currency value of one token entry.
//
// An explicit upstream value wins and its string is kept verbatim. Otherwise the value is
// quantity times the asset price. Unparseable input degrades the entry to zero and is
// reported through the returned error; the ResolvedValue is always usable.
func ResolveValue(amount string, asset *domain.Asset, explicitValue string, currency string) (ResolvedValue, error) {
	quantity := strings.TrimSpace(amount)
	if quantity == "" {
		quantity = "0"
	}
	zero := ResolvedValue{Quantity: quantity, Value: domain.ZeroAmount(currency), Decimal: decimal.Zero}

	if asset == nil {
		return zero, ErrMissingAsset
	}

	if explicit := strings.TrimSpace(explicitValue); explicit != "" {
		d, err := domain.ParseAmount(explicit)
		if err != nil {
			return zero, fmt.Errorf("asset value of %s: %w", asset.Symbol, err)
		}
		return ResolvedValue{
			Quantity: quantity,
			Value:    domain.MonetaryAmount{Amount: explicit, Display: domain.FormatNative(d, currency)},
			Decimal:  d,
		}, nil
	}

	qty, err := domain.ParseAmount(quantity)
	if err != nil {
		return zero, fmt.Errorf("quantity of %s: %w", asset.Symbol, err)
	}
	if !asset.HasPrice() {
		if err := asset.PriceError(); err != nil {
			return zero, fmt.Errorf("%s: %w", asset.Symbol, err)
		}
		return zero, nil
	}
	d := qty.Mul(*asset.Price)
	return ResolvedValue{Quantity: quantity, Value: domain.NewMonetaryAmount(d, currency), Decimal: d}, nil
}

// normalizeAsset returns a copy of the asset with its address in canonical form.
func normalizeAsset(a *domain.Asset) domain.Asset {
	if a == nil {
		return domain.Asset{}
	}
	out := *a
	out.Address = domain.NormalizeAddress(out.Address)
	return out
}
