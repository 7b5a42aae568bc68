package positions

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
)

// reconcileTolerance is the allowed difference between computed and provider totals.
var reconcileTolerance = decimal.RequireFromString("0.01")

// ComputeTotals derives the monetary summary of one protocol.
// total = deposits (incl. pools and unclassified) + rewards + locked - borrows.
func ComputeTotals(p domain.ProtocolPosition, currency string) domain.Totals {
	pools := lo.Reduce(p.Pools, func(acc decimal.Decimal, pool domain.Pool, _ int) decimal.Decimal {
		return acc.Add(domain.SafeParse(pool.Value.Amount))
	}, decimal.Zero)

	deposits := sumEntries(p.Deposits).Add(pools).Add(sumEntries(p.Unclassified))
	borrows := sumEntries(p.Borrows)
	rewards := sumEntries(p.Rewards)
	locked := sumEntries(p.Stakes)
	total := deposits.Add(rewards).Add(locked).Sub(borrows)

	return domain.Totals{
		Total:         domain.NewMonetaryAmount(total, currency),
		TotalDeposits: domain.NewMonetaryAmount(deposits, currency),
		TotalBorrows:  domain.NewMonetaryAmount(borrows, currency),
		TotalRewards:  domain.NewMonetaryAmount(rewards, currency),
		TotalLocked:   domain.NewMonetaryAmount(locked, currency),
	}
}

// GrandTotals sums protocol totals across the whole portfolio.
func GrandTotals(positions map[string]domain.ProtocolPosition, currency string) domain.Totals {
	var total, deposits, borrows, rewards, locked decimal.Decimal
	for _, p := range positions {
		total = total.Add(domain.SafeParse(p.Totals.Total.Amount))
		deposits = deposits.Add(domain.SafeParse(p.Totals.TotalDeposits.Amount))
		borrows = borrows.Add(domain.SafeParse(p.Totals.TotalBorrows.Amount))
		rewards = rewards.Add(domain.SafeParse(p.Totals.TotalRewards.Amount))
		locked = locked.Add(domain.SafeParse(p.Totals.TotalLocked.Amount))
	}
	return domain.Totals{
		Total:         domain.NewMonetaryAmount(total, currency),
		TotalDeposits: domain.NewMonetaryAmount(deposits, currency),
		TotalBorrows:  domain.NewMonetaryAmount(borrows, currency),
		TotalRewards:  domain.NewMonetaryAmount(rewards, currency),
		TotalLocked:   domain.NewMonetaryAmount(locked, currency),
	}
}

// Reconcile compares computed protocol totals with provider stats (netTotal + totalLocked)
// and returns a warning per protocol that differs by more than 0.01. Stats keys are
// normalized like protocol names, so per-version stats are summed.
func Reconcile(result domain.Result, stats map[string]domain.ProtocolStats) []string {
	expected := make(map[string]decimal.Decimal)
	for name, s := range stats {
		id := normalizeProtocolKey(name)
		expected[id] = expected[id].Add(domain.SafeParse(s.NetTotal)).Add(domain.SafeParse(s.TotalLocked))
	}

	ids := lo.Keys(result.Positions)
	slices.Sort(ids)

	var warnings []string
	for _, id := range ids {
		want, ok := expected[id]
		if !ok {
			continue
		}
		got := domain.SafeParse(result.Positions[id].Totals.Total.Amount)
		if got.Sub(want).Abs().GreaterThan(reconcileTolerance) {
			warnings = append(warnings, fmt.Sprintf("protocol %s: computed total %s differs from provider total %s", id, got, want))
		}
	}
	return warnings
}

func sumEntries(entries []domain.Entry) decimal.Decimal {
	return lo.Reduce(entries, func(acc decimal.Decimal, e domain.Entry, _ int) decimal.Decimal {
		return acc.Add(domain.SafeParse(e.Value.Amount))
	}, decimal.Zero)
}
