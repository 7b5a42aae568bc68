package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no native currency is requested.
const DefaultCurrency = "USD"

type currencyFormat struct {
	symbol   string
	decimals int32
	suffix   bool
}

var currencyFormats = map[string]currencyFormat{
	"USD": {symbol: "$", decimals: 2},
	"EUR": {symbol: "€", decimals: 2},
	"GBP": {symbol: "£", decimals: 2},
	"AUD": {symbol: "A$", decimals: 2},
	"CAD": {symbol: "CA$", decimals: 2},
	"CNY": {symbol: "¥", decimals: 2},
	"JPY": {symbol: "¥", decimals: 0},
	"KRW": {symbol: "₩", decimals: 0},
	"INR": {symbol: "₹", decimals: 2},
	"RUB": {symbol: "₽", decimals: 2, suffix: true},
	"TRY": {symbol: "₺", decimals: 2},
	"ZAR": {symbol: "R", decimals: 2},
	"ETH": {symbol: "Ξ", decimals: 4},
}

// NormalizeCurrency upper-cases a currency key and falls back to USD when empty.
func NormalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}

// IsSupportedCurrency reports whether the currency has a known display format.
func IsSupportedCurrency(currency string) bool {
	_, ok := currencyFormats[NormalizeCurrency(currency)]
	return ok
}

// FormatNative renders an amount for display, e.g. "$1,234.56", "-€10.00" or "1,000.00 XYZ"
// for currencies without a known symbol.
func FormatNative(d decimal.Decimal, currency string) string {
	currency = NormalizeCurrency(currency)
	f, ok := currencyFormats[currency]
	if !ok {
		f = currencyFormat{symbol: currency, decimals: 2, suffix: true}
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	body := groupThousands(d.StringFixed(f.decimals))

	if f.suffix {
		return sign + body + " " + f.symbol
	}
	return sign + f.symbol + body
}

// groupThousands inserts comma separators into the integer part of a fixed-point string.
func groupThousands(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
