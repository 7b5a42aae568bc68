package positions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
)

var (
	// ErrMissingPool is returned when a position routed to the pool builder has no pool id.
	ErrMissingPool = errors.New("pool position has no pool reference")
	// ErrEmptyPool is returned when a pool position has no supply tokens.
	ErrEmptyPool = errors.New("pool position has no supply tokens")
)

var hundred = decimal.NewFromInt(100)

// PoolResult is a built pool plus the value issues met while resolving its underlying assets.
type PoolResult struct {
	Pool   domain.Pool
	Issues []error
}

// BuildPool turns the supply list of a liquidity position into a Pool. Underlying assets keep
// the upstream order; the pool value is the sum of their values.
func BuildPool(raw domain.RawPosition, reg *Registry, currency string) (PoolResult, error) {
	if raw.Pool == nil || strings.TrimSpace(raw.Pool.ID) == "" {
		return PoolResult{}, fmt.Errorf("position %s: %w", raw.ID, ErrMissingPool)
	}
	supply := raw.Tokens.SupplyTokenList
	if len(supply) == 0 {
		return PoolResult{}, fmt.Errorf("position %s: %w", raw.ID, ErrEmptyPool)
	}

	var res PoolResult
	underlying := make([]domain.UnderlyingAsset, 0, len(supply))
	values := make([]decimal.Decimal, 0, len(supply))
	for _, t := range supply {
		v, err := ResolveValue(t.Amount, t.Asset, t.AssetValue, currency)
		if err != nil {
			res.Issues = append(res.Issues, fmt.Errorf("position %s: %w", raw.ID, err))
		}
		underlying = append(underlying, domain.UnderlyingAsset{
			Asset:    normalizeAsset(t.Asset),
			Quantity: v.Quantity,
			Value:    v.Value,
		})
		values = append(values, v.Decimal)
	}

	version := Version(raw)
	concentrated := reg.IsConcentrated(reg.Classify(raw), version)
	chainID := raw.Pool.ChainID
	if chainID == 0 {
		chainID = raw.ChainID
	}

	res.Pool = domain.Pool{
		Asset:                   underlying[0].Asset,
		Quantity:                underlying[0].Quantity,
		PoolAddress:             domain.NormalizeAddress(raw.Pool.ID),
		ChainID:                 chainID,
		IsConcentratedLiquidity: concentrated,
		RangeStatus:             CalculateRangeStatus(underlying, concentrated),
		Underlying:              underlying,
		Allocation:              CalculateAllocation(values),
		Value:                   domain.NewMonetaryAmount(lo.Reduce(values, addDecimal, decimal.Zero), currency),
		ProtocolVersion:         version,
		SourceID:                raw.ID,
	}
	return res, nil
}

// CalculateRangeStatus derives the range state of a pool. Non-concentrated pools are always
// full range; a concentrated pool is in range only while every one of at least two underlying
// assets is held.
func CalculateRangeStatus(underlying []domain.UnderlyingAsset, concentrated bool) domain.RangeStatus {
	if !concentrated {
		return domain.RangeFullRange
	}
	active := lo.CountBy(underlying, func(u domain.UnderlyingAsset) bool {
		return !domain.IsZeroAmount(u.Quantity)
	})
	if active >= 2 && active == len(underlying) {
		return domain.RangeInRange
	}
	return domain.RangeOutOfRange
}

// CalculateAllocation splits 100% across pool values in input order. Pools with more than two
// assets collapse into the first two plus "other". Percentages are non-negative and sum to 100.
func CalculateAllocation(values []decimal.Decimal) domain.Allocation {
	n := len(values)
	if n == 0 {
		return domain.Allocation{Display: "0% / 0%", Percentages: []int{}, Splits: 0}
	}

	shares := make([]decimal.Decimal, n)
	total := decimal.Zero
	for i, v := range values {
		if v.IsNegative() {
			v = decimal.Zero
		}
		shares[i] = v
		total = total.Add(v)
	}
	if total.IsZero() {
		for i := range shares {
			shares[i] = decimal.NewFromInt(1)
		}
		total = decimal.NewFromInt(int64(n))
	}

	buckets := n
	if n > 2 {
		buckets = 3
	}
	pcts := make([]int, buckets)
	for i := 0; i < buckets-1; i++ {
		pcts[i] = int(shares[i].Mul(hundred).Div(total).Round(0).IntPart())
	}

	// The last bucket absorbs the rounding remainder and everything beyond the first two assets.
	pcts[buckets-1] = 100 - lo.Sum(pcts[:buckets-1])
	for i := buckets - 2; i >= 0 && pcts[buckets-1] < 0; i-- {
		take := min(pcts[i], -pcts[buckets-1])
		pcts[i] -= take
		pcts[buckets-1] += take
	}

	display := fmt.Sprintf("%d%% / 0%%", pcts[0])
	if buckets > 1 {
		display = fmt.Sprintf("%d%% / %d%%", pcts[0], pcts[1])
	}
	return domain.Allocation{Display: display, Percentages: pcts, Splits: buckets}
}

func addDecimal(acc decimal.Decimal, v decimal.Decimal, _ int) decimal.Decimal {
	return acc.Add(v)
}
