package domain

// MonetaryAmount is a value in the native currency: a decimal string plus its display form.
type MonetaryAmount struct {
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

// Entry is one categorized token line. It always maps to exactly one upstream token entry.
type Entry struct {
	Asset           Asset          `json:"asset"`
	Quantity        string         `json:"quantity"`
	Value           MonetaryAmount `json:"value"`
	ProtocolVersion string         `json:"protocolVersion,omitempty"`
	PoolAddress     string         `json:"poolAddress,omitempty"`
	SourceID        string         `json:"sourceId"`
}

// UnderlyingAsset is one asset held inside a pool.
type UnderlyingAsset struct {
	Asset    Asset          `json:"asset"`
	Quantity string         `json:"quantity"`
	Value    MonetaryAmount `json:"value"`
}

// RangeStatus describes the price-range state of a liquidity position.
type RangeStatus string

const (
	RangeInRange    RangeStatus = "in_range"
	RangeOutOfRange RangeStatus = "out_of_range"
	RangeFullRange  RangeStatus = "full_range"
)

// Allocation is the percentage split of a pool's value across its underlying assets.
type Allocation struct {
	Display     string `json:"display"`
	Percentages []int  `json:"percentages"`
	Splits      int    `json:"splits"`
}

// Pool is a liquidity-pool holding built from a raw position's supply token list.
type Pool struct {
	Asset                   Asset             `json:"asset"`
	Quantity                string            `json:"quantity"`
	PoolAddress             string            `json:"poolAddress"`
	ChainID                 int64             `json:"chainId"`
	IsConcentratedLiquidity bool              `json:"isConcentratedLiquidity"`
	RangeStatus             RangeStatus       `json:"rangeStatus"`
	Underlying              []UnderlyingAsset `json:"underlying"`
	Allocation              Allocation        `json:"allocation"`
	Value                   MonetaryAmount    `json:"value"`
	ProtocolVersion         string            `json:"protocolVersion,omitempty"`
	SourceID                string            `json:"sourceId"`
}

// Totals is the monetary summary of a protocol or of the whole portfolio.
type Totals struct {
	Total         MonetaryAmount `json:"total"`
	TotalDeposits MonetaryAmount `json:"totalDeposits"`
	TotalBorrows  MonetaryAmount `json:"totalBorrows"`
	TotalRewards  MonetaryAmount `json:"totalRewards"`
	TotalLocked   MonetaryAmount `json:"totalLocked"`
}

// ProtocolPosition aggregates every raw position sharing a canonical protocol identity.
type ProtocolPosition struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocolVersion"`
	ChainIDs        []int64 `json:"chainIds"`
	Dapp            Dapp    `json:"dapp"`
	Deposits        []Entry `json:"deposits"`
	Borrows         []Entry `json:"borrows"`
	Rewards         []Entry `json:"rewards"`
	Stakes          []Entry `json:"stakes"`
	Pools           []Pool  `json:"pools"`
	Unclassified    []Entry `json:"unclassified,omitempty"`
	Totals          Totals  `json:"totals"`
}

// IsEmpty returns true if the position holds no entries in any category.
func (p ProtocolPosition) IsEmpty() bool {
	return len(p.Deposits) == 0 && len(p.Borrows) == 0 && len(p.Rewards) == 0 &&
		len(p.Stakes) == 0 && len(p.Pools) == 0 && len(p.Unclassified) == 0
}

// Result is the normalized portfolio handed to the presentation layer.
type Result struct {
	Positions map[string]ProtocolPosition `json:"positions"`
	Totals    Totals                      `json:"totals"`
	Currency  string                      `json:"currency"`

	// PositionTokens are token ids a wallet token list should hide because positions cover them.
	PositionTokens []string `json:"positionTokens"`
	Warnings       []string `json:"warnings,omitempty"`
}

// WalletPortfolio pairs a wallet address with its portfolio.
type WalletPortfolio struct {
	Address string `json:"address"`
	Result  Result `json:"result"`
}
