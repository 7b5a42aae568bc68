package positions

import (
	"fmt"

	"github.com/mtlprog/positions/internal/domain"
)

type bucket int

const (
	bucketNone bucket = iota
	bucketDeposits
	bucketStakes
	bucketPool
	bucketUnclassified
)

// Categorized holds the entries produced from one raw position.
type Categorized struct {
	Deposits     []domain.Entry
	Borrows      []domain.Entry
	Rewards      []domain.Entry
	Stakes       []domain.Entry
	Unclassified []domain.Entry

	// RouteToPool is set when the supply list must be turned into a Pool.
	RouteToPool bool
	// Unknown is set when the position kind is not recognized.
	Unknown bool
	// Issues lists entries whose value could not be resolved and were degraded to zero.
	Issues []error
}

// supplyBucket decides where supply tokens of a position kind go.
func supplyBucket(kind domain.PositionName, detail domain.DetailType, supplyCount int) (bucket, bool) {
	switch kind {
	case domain.PositionLending, domain.PositionYield, domain.PositionLeveragedFarming,
		domain.PositionDeposit, domain.PositionInvestment:
		return bucketDeposits, true
	case domain.PositionLocked, domain.PositionStaked:
		return bucketStakes, true
	case domain.PositionFarming:
		if detail == domain.DetailLocked {
			return bucketStakes, true
		}
		if supplyCount > 1 {
			return bucketPool, true
		}
		return bucketDeposits, true
	case domain.PositionLiquidityPool:
		return bucketPool, true
	case domain.PositionRewards, domain.PositionVesting:
		return bucketNone, true
	}
	return bucketUnclassified, false
}

// Categorize routes the token lists of one raw position into portfolio categories.
// Every non-reward token entry maps to exactly one output entry; zero-amount rewards are
// dropped. Unsupported kinds must be filtered by the caller.
func Categorize(raw domain.RawPosition, currency string) Categorized {
	var c Categorized

	kind := domain.ParsePositionName(string(raw.PositionName))
	detail := domain.ParseDetailType(string(raw.DetailType))
	supply := raw.Tokens.SupplyTokenList

	target, known := supplyBucket(kind, detail, len(supply))
	c.Unknown = !known

	switch target {
	case bucketDeposits:
		c.Deposits = c.entries(raw, supply, currency)
	case bucketStakes:
		c.Stakes = c.entries(raw, supply, currency)
	case bucketUnclassified:
		c.Unclassified = c.entries(raw, supply, currency)
	case bucketPool:
		c.RouteToPool = len(supply) > 0
	}

	c.Borrows = c.entries(raw, raw.Tokens.BorrowTokenList, currency)

	rewards := make([]domain.TokenEntry, 0, len(raw.Tokens.RewardTokenList))
	for _, t := range raw.Tokens.RewardTokenList {
		if !domain.IsZeroAmount(t.Amount) {
			rewards = append(rewards, t)
		}
	}
	c.Rewards = c.entries(raw, rewards, currency)

	return c
}

func (c *Categorized) entries(raw domain.RawPosition, tokens []domain.TokenEntry, currency string) []domain.Entry {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]domain.Entry, 0, len(tokens))
	version := Version(raw)
	poolAddress := ""
	if raw.Pool != nil {
		poolAddress = domain.NormalizeAddress(raw.Pool.ID)
	}

	for _, t := range tokens {
		v, err := ResolveValue(t.Amount, t.Asset, t.AssetValue, currency)
		if err != nil {
			c.Issues = append(c.Issues, fmt.Errorf("position %s: %w", raw.ID, err))
		}
		out = append(out, domain.Entry{
			Asset:           normalizeAsset(t.Asset),
			Quantity:        v.Quantity,
			Value:           v.Value,
			ProtocolVersion: version,
			PoolAddress:     poolAddress,
			SourceID:        raw.ID,
		})
	}
	return out
}
