package domain

import "strings"

// PositionName is the coarse kind of a raw position as reported upstream.
type PositionName string

const (
	PositionLending          PositionName = "LENDING"
	PositionLiquidityPool    PositionName = "LIQUIDITY_POOL"
	PositionLocked           PositionName = "LOCKED"
	PositionStaked           PositionName = "STAKED"
	PositionFarming          PositionName = "FARMING"
	PositionRewards          PositionName = "REWARDS"
	PositionVesting          PositionName = "VESTING"
	PositionDeposit          PositionName = "DEPOSIT"
	PositionYield            PositionName = "YIELD"
	PositionInvestment       PositionName = "INVESTMENT"
	PositionLeveragedFarming PositionName = "LEVERAGED_FARMING"
	PositionPerpetuals       PositionName = "PERPETUALS"
	PositionOptionsBuyer     PositionName = "OPTIONS_BUYER"
	PositionOptionsSeller    PositionName = "OPTIONS_SELLER"
	PositionInsuranceBuyer   PositionName = "INSURANCE_BUYER"
	PositionInsuranceSeller  PositionName = "INSURANCE_SELLER"
)

// ParsePositionName normalizes an upstream kind string. Unknown values are kept as-is
// so the categorizer can route them to the unclassified bucket.
func ParsePositionName(s string) PositionName {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "POSITION_NAME_")
	return PositionName(s)
}

// DetailType disambiguates token-list semantics within a PositionName.
type DetailType string

const (
	DetailLending   DetailType = "LENDING"
	DetailCommon    DetailType = "COMMON"
	DetailLocked    DetailType = "LOCKED"
	DetailLeveraged DetailType = "LEVERAGED_FARMING"
	DetailVesting   DetailType = "VESTING"
	DetailReward    DetailType = "REWARD"
)

// ParseDetailType normalizes an upstream detail type string.
func ParseDetailType(s string) DetailType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "DETAIL_TYPE_")
	return DetailType(s)
}

// TokenEntry is one token line inside a raw position token list.
type TokenEntry struct {
	Amount     string `json:"amount"`
	Asset      *Asset `json:"asset"`
	AssetValue string `json:"assetValue"`
}

// TokenLists groups the three token lists of a raw position.
type TokenLists struct {
	SupplyTokenList []TokenEntry `json:"supplyTokenList"`
	BorrowTokenList []TokenEntry `json:"borrowTokenList"`
	RewardTokenList []TokenEntry `json:"rewardTokenList"`
}

// PoolRef identifies the on-chain pool of a liquidity position.
type PoolRef struct {
	ID      string `json:"id"`
	ChainID int64  `json:"chainId"`
}

// Dapp holds display metadata of the protocol front-end.
type Dapp struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	IconURL string `json:"iconUrl"`
}

// RawPosition is one upstream-reported holding record, scoped to one protocol version and chain.
type RawPosition struct {
	ID                    string       `json:"id"`
	ChainID               int64        `json:"chainId"`
	ProtocolName          string       `json:"protocolName"`
	CanonicalProtocolName string       `json:"canonicalProtocolName"`
	ProtocolVersion       string       `json:"protocolVersion"`
	PositionName          PositionName `json:"positionName"`
	DetailType            DetailType   `json:"detailType"`
	AssetValue            string       `json:"assetValue"`
	DebtValue             string       `json:"debtValue"`
	NetValue              string       `json:"netValue"`
	Tokens                TokenLists   `json:"tokens"`
	Pool                  *PoolRef     `json:"pool,omitempty"`
	Dapp                  *Dapp        `json:"dapp,omitempty"`
}

// ProtocolStats are the provider-side totals for one canonical protocol.
type ProtocolStats struct {
	NetTotal      string `json:"netTotal"`
	TotalDeposits string `json:"totalDeposits"`
	TotalBorrows  string `json:"totalBorrows"`
	TotalRewards  string `json:"totalRewards"`
	TotalLocked   string `json:"totalLocked"`
}

// ListPositionsResponse is one atomic snapshot delivered by the positions provider.
type ListPositionsResponse struct {
	Positions []RawPosition            `json:"positions"`
	Stats     map[string]ProtocolStats `json:"stats,omitempty"`

	// UniqueTokens lists the unique ids of wallet tokens that back the positions above.
	UniqueTokens []string `json:"uniqueTokens,omitempty"`
}
