package positions

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
)

const (
	wethAddr = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdcAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	daiAddr  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	poolAddr = "0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640"
)

func priceOf(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func asset(symbol, addr string) *domain.Asset {
	return &domain.Asset{Symbol: symbol, Address: addr, ChainID: 1, Decimals: 18}
}

func tok(symbol, addr, amount, value string) domain.TokenEntry {
	return domain.TokenEntry{Amount: amount, Asset: asset(symbol, addr), AssetValue: value}
}

func lendingPosition(id string, supply, borrow []domain.TokenEntry) domain.RawPosition {
	return domain.RawPosition{
		ID:           id,
		ChainID:      1,
		ProtocolName: "Aave V3",
		PositionName: domain.PositionLending,
		DetailType:   domain.DetailLending,
		Tokens:       domain.TokenLists{SupplyTokenList: supply, BorrowTokenList: borrow},
	}
}

func poolPosition(id, protocol, version, net string, supply ...domain.TokenEntry) domain.RawPosition {
	return domain.RawPosition{
		ID:              id,
		ChainID:         1,
		ProtocolName:    protocol,
		ProtocolVersion: version,
		PositionName:    domain.PositionLiquidityPool,
		DetailType:      domain.DetailCommon,
		NetValue:        net,
		Tokens:          domain.TokenLists{SupplyTokenList: supply},
		Pool:            &domain.PoolRef{ID: poolAddr, ChainID: 1},
	}
}

func decimals(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}
