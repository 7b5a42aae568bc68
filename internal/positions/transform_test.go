package positions

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/positions/internal/domain"
)

func uniswapSnapshot() domain.ListPositionsResponse {
	v2 := poolPosition("uni-v2", "Uniswap V2", "v2", "896.20",
		tok("WETH", wethAddr, "0.2", "546.20"),
		tok("USDC", usdcAddr, "350", "350.00"),
	)
	v3 := poolPosition("uni-v3", "Uniswap V3", "v3", "1200",
		tok("WETH", wethAddr, "0.3", "800"),
		tok("USDC", usdcAddr, "400", "400"),
	)
	v3.Tokens.RewardTokenList = []domain.TokenEntry{tok("UNI", "", "0", "0")}
	return domain.ListPositionsResponse{Positions: []domain.RawPosition{v2, v3}}
}

func TestTransformAggregatesVersions(t *testing.T) {
	res := Transform(uniswapSnapshot(), Params{})

	require.Len(t, res.Positions, 1)
	uni, ok := res.Positions["uniswap"]
	require.True(t, ok)

	assert.Equal(t, "uniswap", uni.Type)
	require.Len(t, uni.Pools, 2)
	assert.Equal(t, "uni-v2", uni.Pools[0].SourceID)
	assert.Equal(t, "uni-v3", uni.Pools[1].SourceID)
	assert.False(t, uni.Pools[0].IsConcentratedLiquidity)
	assert.True(t, uni.Pools[1].IsConcentratedLiquidity)
	assert.Equal(t, domain.RangeInRange, uni.Pools[1].RangeStatus)
	assert.Equal(t, "v3", uni.ProtocolVersion)
	assert.Equal(t, []int64{1}, uni.ChainIDs)
	assert.Empty(t, uni.Rewards)

	assert.Equal(t, "546.20", uni.Pools[0].Underlying[0].Value.Amount)
	assert.Equal(t, "350.00", uni.Pools[0].Underlying[1].Value.Amount)
	assert.Equal(t, "2096.2", uni.Totals.TotalDeposits.Amount)
	assert.Equal(t, "2096.2", uni.Totals.Total.Amount)
	assert.Equal(t, "$2,096.20", uni.Totals.Total.Display)

	assert.Equal(t, "2096.2", res.Totals.Total.Amount)
	assert.Equal(t, "USD", res.Currency)
	assert.Empty(t, res.Warnings)
}

func TestTransformRepresentativeVersion(t *testing.T) {
	tests := []struct {
		name string
		nets [2]string
		want string
	}{
		{"higher net wins", [2]string{"10", "20"}, "v3"},
		{"first seen wins ties", [2]string{"20", "20"}, "v2"},
		{"later lower loses", [2]string{"30", "20"}, "v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := poolPosition("a", "Uniswap", "v2", tt.nets[0], tok("WETH", wethAddr, "1", "1"), tok("USDC", usdcAddr, "1", "1"))
			b := poolPosition("b", "Uniswap", "v3", tt.nets[1], tok("WETH", wethAddr, "1", "1"), tok("USDC", usdcAddr, "1", "1"))
			res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{a, b}}, Params{})
			assert.Equal(t, tt.want, res.Positions["uniswap"].ProtocolVersion)
		})
	}

	t.Run("empty version never wins", func(t *testing.T) {
		a := lendingPosition("a", []domain.TokenEntry{tok("WETH", wethAddr, "1", "1")}, nil)
		a.ProtocolName, a.NetValue = "Lido", "1"
		b := lendingPosition("b", []domain.TokenEntry{tok("WETH", wethAddr, "1", "1")}, nil)
		b.ProtocolName, b.ProtocolVersion, b.NetValue = "Lido", "", "1000"
		c := lendingPosition("c", []domain.TokenEntry{tok("WETH", wethAddr, "1", "1")}, nil)
		c.ProtocolName, c.ProtocolVersion, c.NetValue = "Lido", "v2", "5"

		res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{a, b, c}}, Params{})
		assert.Equal(t, "v2", res.Positions["lido"].ProtocolVersion)
	})
}

func TestTransformLendingTotals(t *testing.T) {
	withBorrow := lendingPosition("aave-1",
		[]domain.TokenEntry{tok("WETH", wethAddr, "1", "2000.50")},
		[]domain.TokenEntry{tok("USDC", usdcAddr, "500", "500.25")},
	)
	withBorrow.Tokens.RewardTokenList = []domain.TokenEntry{tok("AAVE", "", "0.1", "10")}
	noBorrow := lendingPosition("comp-1", []domain.TokenEntry{tok("USDC", usdcAddr, "100", "100")}, nil)
	noBorrow.ProtocolName = "Compound V3"

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{withBorrow, noBorrow}}, Params{})

	aave := res.Positions["aave"]
	assert.Equal(t, "2000.5", aave.Totals.TotalDeposits.Amount)
	assert.Equal(t, "500.25", aave.Totals.TotalBorrows.Amount)
	assert.Equal(t, "10", aave.Totals.TotalRewards.Amount)
	assert.Equal(t, "1510.25", aave.Totals.Total.Amount)
	assert.Equal(t, "500.25", aave.Borrows[0].Value.Amount)

	comp := res.Positions["compound"]
	assert.Empty(t, comp.Borrows)
	assert.Equal(t, comp.Totals.TotalDeposits.Amount, comp.Totals.Total.Amount)

	assert.Equal(t, "1610.25", res.Totals.Total.Amount)
}

func TestTransformStakesAreLocked(t *testing.T) {
	raw := domain.RawPosition{
		ID:           "stake",
		ProtocolName: "Rocket Pool",
		PositionName: domain.PositionStaked,
		Tokens:       domain.TokenLists{SupplyTokenList: []domain.TokenEntry{tok("RPL", "", "10", "120")}},
	}
	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{raw}}, Params{})

	rp := res.Positions["rocket-pool"]
	require.Len(t, rp.Stakes, 1)
	assert.Equal(t, "0", rp.Totals.TotalDeposits.Amount)
	assert.Equal(t, "120", rp.Totals.TotalLocked.Amount)
	assert.Equal(t, "120", rp.Totals.Total.Amount)
}

func TestTransformIdempotent(t *testing.T) {
	snap := uniswapSnapshot()
	snap.Positions = append(snap.Positions, lendingPosition("aave-1",
		[]domain.TokenEntry{tok("WETH", wethAddr, "1", "2000")},
		[]domain.TokenEntry{tok("USDC", usdcAddr, "500", "500")},
	))

	first := Transform(snap, Params{Currency: "EUR"})
	second := Transform(snap, Params{Currency: "EUR"})
	assert.Equal(t, first, second)
}

func TestTransformEntriesNeverMerged(t *testing.T) {
	raw := lendingPosition("a", []domain.TokenEntry{
		tok("USDC", usdcAddr, "10", "10"),
		tok("USDC", usdcAddr, "20", "20"),
	}, nil)
	other := lendingPosition("b", []domain.TokenEntry{tok("USDC", usdcAddr, "5", "5")}, nil)

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{raw, other}}, Params{})

	deposits := res.Positions["aave"].Deposits
	require.Len(t, deposits, 3)
	assert.Equal(t, []string{"10", "20", "5"}, []string{deposits[0].Quantity, deposits[1].Quantity, deposits[2].Quantity})
	assert.Equal(t, []string{"a", "a", "b"}, []string{deposits[0].SourceID, deposits[1].SourceID, deposits[2].SourceID})
}

func TestTransformDropsUnsupportedAndTokenPreferred(t *testing.T) {
	perp := domain.RawPosition{
		ID:           "perp",
		ProtocolName: "GMX",
		PositionName: domain.PositionPerpetuals,
		Tokens:       domain.TokenLists{SupplyTokenList: []domain.TokenEntry{tok("USDC", usdcAddr, "10", "10")}},
	}
	lido := domain.RawPosition{
		ID:           "lido",
		ProtocolName: "Lido",
		PositionName: domain.PositionStaked,
		Tokens:       domain.TokenLists{SupplyTokenList: []domain.TokenEntry{tok("stETH", "", "1", "2000")}},
	}

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{perp, lido}}, Params{})
	assert.Empty(t, res.Positions)
	assert.Equal(t, "0", res.Totals.Total.Amount)
	assert.Empty(t, res.Warnings)
}

func TestTransformThresholdFilter(t *testing.T) {
	dust := lendingPosition("dust", []domain.TokenEntry{tok("USDC", usdcAddr, "0.5", "0.5")}, nil)
	funded := lendingPosition("real", []domain.TokenEntry{tok("USDC", usdcAddr, "50", "50")}, nil)
	funded.ProtocolName = "Spark"
	snap := domain.ListPositionsResponse{Positions: []domain.RawPosition{dust, funded}}

	res := Transform(snap, Params{})
	assert.Len(t, res.Positions, 2)

	res = Transform(snap, Params{ThresholdFilter: true})
	assert.Len(t, res.Positions, 1)
	assert.Contains(t, res.Positions, "spark")
	assert.Equal(t, "50", res.Totals.Total.Amount)

	res = Transform(snap, Params{ThresholdFilter: true, MinValue: decimal.NewFromInt(100)})
	assert.Empty(t, res.Positions)
}

func TestTransformMissingPoolExcluded(t *testing.T) {
	broken := poolPosition("broken", "Uniswap V3", "v3", "10", tok("WETH", wethAddr, "1", "10"), tok("USDC", usdcAddr, "1", "1"))
	broken.Pool = nil
	broken.Tokens.RewardTokenList = []domain.TokenEntry{tok("UNI", "", "1", "5")}
	ok := lendingPosition("ok", []domain.TokenEntry{tok("USDC", usdcAddr, "1", "1")}, nil)

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{broken, ok}}, Params{})

	assert.NotContains(t, res.Positions, "uniswap")
	assert.Contains(t, res.Positions, "aave")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "broken")

	for _, id := range []string{"", "  "} {
		blank := poolPosition("blank", "Uniswap V2", "v2", "10", tok("WETH", wethAddr, "1", "10"), tok("USDC", usdcAddr, "1", "1"))
		blank.Pool = &domain.PoolRef{ID: id, ChainID: 1}

		res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{blank}}, Params{})

		assert.NotContains(t, res.Positions, "uniswap", "pool id %q", id)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "blank")
	}
}

func TestTransformLendingValuesNotDuplicated(t *testing.T) {
	raw := lendingPosition("a", []domain.TokenEntry{
		tok("WETH", wethAddr, "0.2", "546.20"),
		tok("USDC", usdcAddr, "350", "350.00"),
	}, nil)
	raw.AssetValue = "896.20"

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{raw}}, Params{})

	deposits := res.Positions["aave"].Deposits
	require.Len(t, deposits, 2)
	weth, usdc := deposits[0].Value.Amount, deposits[1].Value.Amount
	assert.Equal(t, "546.20", weth)
	assert.Equal(t, "350.00", usdc)
	assert.NotEqual(t, weth, usdc)
	assert.NotEqual(t, raw.AssetValue, weth)
	assert.NotEqual(t, raw.AssetValue, usdc)
	assert.Equal(t, "896.2", res.Positions["aave"].Totals.TotalDeposits.Amount)
}

func TestTransformMalformedPriceDegradesEntry(t *testing.T) {
	var snap domain.ListPositionsResponse
	err := json.Unmarshal([]byte(`{"positions": [{
		"id": "a",
		"protocolName": "Aave V3",
		"positionName": "LENDING",
		"tokens": {"supplyTokenList": [
			{"amount": "1", "asset": {"symbol": "WETH", "address": "`+wethAddr+`", "price": "n/a"}},
			{"amount": "10", "asset": {"symbol": "USDC", "address": "`+usdcAddr+`", "price": "1"}}
		]}
	}]}`), &snap)
	require.NoError(t, err)

	res := Transform(snap, Params{})

	aave := res.Positions["aave"]
	require.Len(t, aave.Deposits, 2)
	assert.Equal(t, "0", aave.Deposits[0].Value.Amount)
	assert.Equal(t, "10", aave.Deposits[1].Value.Amount)
	assert.Equal(t, "10", aave.Totals.Total.Amount)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "WETH")
}

func TestTransformDegradedValue(t *testing.T) {
	raw := lendingPosition("a", []domain.TokenEntry{
		tok("WETH", wethAddr, "1", "NaN-ish"),
		tok("USDC", usdcAddr, "10", "10"),
	}, nil)

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{raw}}, Params{})

	aave := res.Positions["aave"]
	require.Len(t, aave.Deposits, 2)
	assert.Equal(t, "0", aave.Deposits[0].Value.Amount)
	assert.Equal(t, "10", aave.Totals.Total.Amount)
	require.Len(t, res.Warnings, 1)
	assert.True(t, strings.HasPrefix(res.Warnings[0], "value degraded to zero"))
}

func TestTransformUnknownKind(t *testing.T) {
	raw := domain.RawPosition{
		ID:           "new",
		ProtocolName: "EigenLayer",
		PositionName: domain.PositionName("RESTAKING"),
		Tokens:       domain.TokenLists{SupplyTokenList: []domain.TokenEntry{tok("WETH", wethAddr, "1", "2000")}},
	}
	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{raw}}, Params{})

	eigen := res.Positions["eigenlayer"]
	require.Len(t, eigen.Unclassified, 1)
	assert.Equal(t, "2000", eigen.Totals.TotalDeposits.Amount)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "RESTAKING")
}

func TestTransformFarming(t *testing.T) {
	single := domain.RawPosition{
		ID:           "f1",
		ProtocolName: "Convex",
		PositionName: domain.PositionFarming,
		DetailType:   domain.DetailCommon,
		Tokens:       domain.TokenLists{SupplyTokenList: []domain.TokenEntry{tok("crvUSD", "", "10", "10")}},
	}
	multi := poolPosition("f2", "Convex", "", "30", tok("DAI", daiAddr, "10", "10"), tok("USDC", usdcAddr, "20", "20"))
	multi.PositionName = domain.PositionFarming

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{single, multi}}, Params{})

	convex := res.Positions["convex"]
	assert.Len(t, convex.Deposits, 1)
	require.Len(t, convex.Pools, 1)
	assert.Equal(t, []int{33, 67}, convex.Pools[0].Allocation.Percentages)
	assert.Equal(t, "40", convex.Totals.Total.Amount)
}

func TestTransformReconcile(t *testing.T) {
	raw := lendingPosition("a", []domain.TokenEntry{tok("USDC", usdcAddr, "100", "100")}, nil)
	snap := domain.ListPositionsResponse{
		Positions: []domain.RawPosition{raw},
		Stats:     map[string]domain.ProtocolStats{"Aave V3": {NetTotal: "100.005"}},
	}
	assert.Empty(t, Transform(snap, Params{}).Warnings)

	snap.Stats["Aave V3"] = domain.ProtocolStats{NetTotal: "90", TotalLocked: "5"}
	res := Transform(snap, Params{})
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "aave")
}

func TestTransformCurrency(t *testing.T) {
	raw := lendingPosition("a", []domain.TokenEntry{tok("USDC", usdcAddr, "100", "92.5")}, nil)
	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{raw}}, Params{Currency: "eur"})

	assert.Equal(t, "EUR", res.Currency)
	assert.Equal(t, "€92.50", res.Positions["aave"].Totals.Total.Display)
}

func TestSortedProtocols(t *testing.T) {
	a := lendingPosition("a", []domain.TokenEntry{tok("USDC", usdcAddr, "1", "10")}, nil)
	b := lendingPosition("b", []domain.TokenEntry{tok("USDC", usdcAddr, "1", "30")}, nil)
	b.ProtocolName = "Spark"
	c := lendingPosition("c", []domain.TokenEntry{tok("USDC", usdcAddr, "1", "10")}, nil)
	c.ProtocolName = "Morpho"

	res := Transform(domain.ListPositionsResponse{Positions: []domain.RawPosition{a, b, c}}, Params{})
	sorted := SortedProtocols(res)

	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"spark", "aave", "morpho"}, []string{sorted[0].Type, sorted[1].Type, sorted[2].Type})
}

func TestTransformEmptySnapshot(t *testing.T) {
	res := Transform(domain.ListPositionsResponse{}, Params{})
	assert.Empty(t, res.Positions)
	assert.NotNil(t, res.Positions)
	assert.Equal(t, "$0.00", res.Totals.Total.Display)
	assert.NotNil(t, res.PositionTokens)
	assert.Empty(t, res.PositionTokens)
}

func TestTransformPositionTokensPassThrough(t *testing.T) {
	snap := uniswapSnapshot()
	snap.UniqueTokens = []string{"1:" + wethAddr, "", "1:" + usdcAddr, "1:" + wethAddr}

	res := Transform(snap, Params{})

	assert.Equal(t, []string{"1:" + wethAddr, "1:" + usdcAddr}, res.PositionTokens)

	res = Transform(domain.ListPositionsResponse{UniqueTokens: []string{"1:" + daiAddr}}, Params{})
	assert.Empty(t, res.Positions)
	assert.Equal(t, []string{"1:" + daiAddr}, res.PositionTokens)
}
