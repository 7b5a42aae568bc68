package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
	"github.com/mtlprog/positions/internal/positions"
)

// Categories of a flattened row.
const (
	CategoryDeposit      = "deposit"
	CategoryBorrow       = "borrow"
	CategoryReward       = "reward"
	CategoryStake        = "stake"
	CategoryPool         = "pool"
	CategoryUnclassified = "unclassified"
)

// Row is one line of a flattened portfolio: a single entry or pool of one protocol.
type Row struct {
	Wallet      string
	Protocol    string
	Name        string
	Version     string
	Category    string
	Symbol      string
	Asset       string
	ChainID     int64
	Quantity    decimal.Decimal
	Value       decimal.Decimal
	Currency    string
	PoolAddress string
	Allocation  string
	RangeStatus string
}

// SummaryRow holds the grand totals of one wallet.
type SummaryRow struct {
	Wallet    string
	Currency  string
	Protocols int
	Total     decimal.Decimal
	Deposits  decimal.Decimal
	Borrows   decimal.Decimal
	Rewards   decimal.Decimal
	Locked    decimal.Decimal
}

// Writer writes portfolios to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, date time.Time, portfolios []domain.WalletPortfolio) error
}

// Service delegates writing to every configured Writer.
type Service struct {
	writers []Writer
}

// NewService creates a new export Service. Nil writers are ignored.
func NewService(writers ...Writer) *Service {
	s := &Service{}
	for _, w := range writers {
		if w != nil {
			s.writers = append(s.writers, w)
		}
	}
	return s
}

// Enabled reports whether at least one writer is configured.
func (s *Service) Enabled() bool {
	return len(s.writers) > 0
}

// Export writes the portfolios with every writer. A failing writer does not stop the others.
// Implements worker.AfterRefreshHook.
func (s *Service) Export(ctx context.Context, date time.Time, portfolios []domain.WalletPortfolio) error {
	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, date, portfolios); err != nil {
			slog.Error("export: writer failed", "writer", fmt.Sprintf("%T", w), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flatten turns a wallet portfolio into rows. Protocols follow the sorted view (total
// descending); inside a protocol the category order is deposits, pools, stakes, rewards,
// borrows, unclassified, and entries keep their order.
func Flatten(p domain.WalletPortfolio) []Row {
	var rows []Row
	currency := p.Result.Currency

	for _, proto := range positions.SortedProtocols(p.Result) {
		base := Row{
			Wallet:   p.Address,
			Protocol: proto.Type,
			Name:     proto.Dapp.Name,
			Version:  proto.ProtocolVersion,
			Currency: currency,
		}
		entries := func(category string, list []domain.Entry) {
			for _, e := range list {
				r := base
				r.Category = category
				r.Symbol = e.Asset.Symbol
				r.Asset = e.Asset.Address
				r.ChainID = e.Asset.ChainID
				r.Quantity = domain.SafeParse(e.Quantity)
				r.Value = domain.SafeParse(e.Value.Amount)
				r.PoolAddress = e.PoolAddress
				if e.ProtocolVersion != "" {
					r.Version = e.ProtocolVersion
				}
				rows = append(rows, r)
			}
		}

		entries(CategoryDeposit, proto.Deposits)
		for _, pool := range proto.Pools {
			r := base
			r.Category = CategoryPool
			r.Symbol = poolSymbol(pool)
			r.Asset = pool.Asset.Address
			r.ChainID = pool.ChainID
			r.Quantity = domain.SafeParse(pool.Quantity)
			r.Value = domain.SafeParse(pool.Value.Amount)
			r.PoolAddress = pool.PoolAddress
			r.Allocation = pool.Allocation.Display
			r.RangeStatus = string(pool.RangeStatus)
			if pool.ProtocolVersion != "" {
				r.Version = pool.ProtocolVersion
			}
			rows = append(rows, r)
		}
		entries(CategoryStake, proto.Stakes)
		entries(CategoryReward, proto.Rewards)
		entries(CategoryBorrow, proto.Borrows)
		entries(CategoryUnclassified, proto.Unclassified)
	}
	return rows
}

// Summarize returns the grand totals of a wallet portfolio.
func Summarize(p domain.WalletPortfolio) SummaryRow {
	t := p.Result.Totals
	return SummaryRow{
		Wallet:    p.Address,
		Currency:  p.Result.Currency,
		Protocols: len(p.Result.Positions),
		Total:     domain.SafeParse(t.Total.Amount),
		Deposits:  domain.SafeParse(t.TotalDeposits.Amount),
		Borrows:   domain.SafeParse(t.TotalBorrows.Amount),
		Rewards:   domain.SafeParse(t.TotalRewards.Amount),
		Locked:    domain.SafeParse(t.TotalLocked.Amount),
	}
}

// poolSymbol joins the underlying symbols of a pool, e.g. "WETH/USDC".
func poolSymbol(p domain.Pool) string {
	return strings.Join(lo.Map(p.Underlying, func(u domain.UnderlyingAsset, _ int) string {
		return u.Asset.Symbol
	}), "/")
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
