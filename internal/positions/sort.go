package positions

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/positions/internal/domain"
)

// SortedProtocols returns the protocols of a result ordered by total value descending,
// ties broken by protocol id.
func SortedProtocols(result domain.Result) []domain.ProtocolPosition {
	out := lo.Values(result.Positions)
	slices.SortFunc(out, func(a, b domain.ProtocolPosition) int {
		ta := domain.SafeParse(a.Totals.Total.Amount)
		tb := domain.SafeParse(b.Totals.Total.Amount)
		if c := tb.Cmp(ta); c != 0 {
			return c
		}
		return strings.Compare(a.Type, b.Type)
	})
	return out
}
