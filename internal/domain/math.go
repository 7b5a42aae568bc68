package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	d, err := ParseAmount(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmount parses a decimal string. Empty input is zero; anything else that is not a
// plain decimal number is an error.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	return d, nil
}

// IsZeroAmount reports whether a decimal string is zero, empty or unparseable.
func IsZeroAmount(value string) bool {
	return SafeParse(value).IsZero()
}

// NewMonetaryAmount builds a MonetaryAmount from a decimal, rendering the display form
// in the given currency.
func NewMonetaryAmount(d decimal.Decimal, currency string) MonetaryAmount {
	return MonetaryAmount{
		Amount:  d.String(),
		Display: FormatNative(d, currency),
	}
}

// ZeroAmount is the zero MonetaryAmount in the given currency.
func ZeroAmount(currency string) MonetaryAmount {
	return NewMonetaryAmount(decimal.Zero, currency)
}
