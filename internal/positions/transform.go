// Package positions turns a provider snapshot of DeFi positions into a portfolio grouped
// by canonical protocol, with categorized entries, liquidity pools and decimal totals.
package positions

import (
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
)

// DefaultMinValue is the threshold used when ThresholdFilter is on and MinValue is unset.
var DefaultMinValue = decimal.NewFromInt(1)

// Params configures a Transform call.
type Params struct {
	Currency        string
	ThresholdFilter bool
	MinValue        decimal.Decimal
	Registry        *Registry
	Logger          *slog.Logger
}

func (p Params) withDefaults() Params {
	p.Currency = domain.NormalizeCurrency(p.Currency)
	if p.MinValue.IsZero() {
		p.MinValue = DefaultMinValue
	}
	if p.Registry == nil {
		p.Registry = DefaultRegistry()
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

type transformer struct {
	params   Params
	warnings []string
}

func (t *transformer) warn(msg string, args ...any) {
	w := fmt.Sprintf(msg, args...)
	t.params.Logger.Warn(w)
	t.warnings = append(t.warnings, w)
}

// Transform builds the portfolio view of one snapshot. It is pure: the same input and
// params always produce the same Result. Bad data never aborts the whole transform; it
// degrades the affected entry or position and is reported in Result.Warnings.
func Transform(resp domain.ListPositionsResponse, params Params) domain.Result {
	t := &transformer{params: params.withDefaults()}
	currency := t.params.Currency

	items := make([]Classified, 0, len(resp.Positions))
	for _, raw := range resp.Positions {
		if item, ok := t.process(raw); ok {
			items = append(items, item)
		}
	}

	positions := Aggregate(items)
	for id, p := range positions {
		if p.IsEmpty() {
			delete(positions, id)
			continue
		}
		p.Totals = ComputeTotals(p, currency)
		if t.params.ThresholdFilter && BelowThreshold(p, t.params.MinValue) {
			t.params.Logger.Debug("dropping protocol below threshold",
				"protocol", id, "total", p.Totals.Total.Amount, "min", t.params.MinValue.String())
			delete(positions, id)
			continue
		}
		positions[id] = p
	}

	result := domain.Result{
		Positions:      positions,
		Totals:         GrandTotals(positions, currency),
		Currency:       currency,
		PositionTokens: lo.Uniq(lo.Compact(resp.UniqueTokens)),
	}

	for _, w := range Reconcile(result, resp.Stats) {
		t.warn("%s", w)
	}
	result.Warnings = t.warnings

	return result
}

func (t *transformer) process(raw domain.RawPosition) (Classified, bool) {
	reg := t.params.Registry
	log := t.params.Logger
	kind := domain.ParsePositionName(string(raw.PositionName))

	if reg.IsUnsupported(kind) {
		log.Info("skipping unsupported position", "id", raw.ID, "kind", kind)
		return Classified{}, false
	}
	if reg.PrefersToken(raw) {
		log.Debug("skipping token-preferred position", "id", raw.ID)
		return Classified{}, false
	}

	item := Classified{
		Protocol:    reg.Classify(raw),
		Raw:         raw,
		Categorized: Categorize(raw, t.params.Currency),
	}
	if item.Categorized.Unknown {
		t.warn("position %s: unrecognized kind %q, supply tokens left unclassified", raw.ID, kind)
	}
	if dropped := len(raw.Tokens.RewardTokenList) - len(item.Categorized.Rewards); dropped > 0 {
		log.Debug("filtered zero-amount rewards", "id", raw.ID, "count", dropped)
	}

	issues := item.Categorized.Issues
	if item.Categorized.RouteToPool {
		res, err := BuildPool(raw, reg, t.params.Currency)
		if err != nil {
			t.warn("excluding position: %v", err)
			return Classified{}, false
		}
		item.Pool = &res.Pool
		issues = append(issues, res.Issues...)
	}
	for _, err := range issues {
		t.warn("value degraded to zero: %v", err)
	}

	return item, true
}
