package positions

import (
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/positions/internal/domain"
)

// Classified is one raw position after classification and categorization.
type Classified struct {
	Protocol    string
	Raw         domain.RawPosition
	Categorized Categorized
	Pool        *domain.Pool
}

type group struct {
	pos        domain.ProtocolPosition
	bestNet    decimal.Decimal
	hasVersion bool
	chains     map[int64]bool
}

// Aggregate merges classified positions by canonical protocol id. Entry lists are
// concatenated in input order; the representative version is that of the constituent with
// the highest net value, ties going to the first seen. Totals are left for ComputeTotals.
func Aggregate(items []Classified) map[string]domain.ProtocolPosition {
	groups := make(map[string]*group)
	for _, it := range items {
		g, ok := groups[it.Protocol]
		if !ok {
			g = &group{
				pos:    domain.ProtocolPosition{Type: it.Protocol},
				chains: make(map[int64]bool),
			}
			groups[it.Protocol] = g
		}
		g.add(it)
	}

	return lo.MapValues(groups, func(g *group, _ string) domain.ProtocolPosition {
		return g.finish()
	})
}

func (g *group) add(it Classified) {
	c := it.Categorized
	g.pos.Deposits = append(g.pos.Deposits, c.Deposits...)
	g.pos.Borrows = append(g.pos.Borrows, c.Borrows...)
	g.pos.Rewards = append(g.pos.Rewards, c.Rewards...)
	g.pos.Stakes = append(g.pos.Stakes, c.Stakes...)
	g.pos.Unclassified = append(g.pos.Unclassified, c.Unclassified...)
	if it.Pool != nil {
		g.pos.Pools = append(g.pos.Pools, *it.Pool)
	}

	if v := Version(it.Raw); v != "" {
		net := domain.SafeParse(it.Raw.NetValue)
		if !g.hasVersion || net.GreaterThan(g.bestNet) {
			g.pos.ProtocolVersion = v
			g.bestNet = net
			g.hasVersion = true
		}
	}

	if it.Raw.ChainID != 0 {
		g.chains[it.Raw.ChainID] = true
	}
	if d := it.Raw.Dapp; d != nil {
		g.pos.Dapp.Name = lo.CoalesceOrEmpty(g.pos.Dapp.Name, d.Name)
		g.pos.Dapp.URL = lo.CoalesceOrEmpty(g.pos.Dapp.URL, d.URL)
		g.pos.Dapp.IconURL = lo.CoalesceOrEmpty(g.pos.Dapp.IconURL, d.IconURL)
	}
}

func (g *group) finish() domain.ProtocolPosition {
	p := g.pos
	p.ChainIDs = lo.Keys(g.chains)
	slices.Sort(p.ChainIDs)

	p.Deposits = nonNil(p.Deposits)
	p.Borrows = nonNil(p.Borrows)
	p.Rewards = nonNil(p.Rewards)
	p.Stakes = nonNil(p.Stakes)
	p.ChainIDs = nonNil(p.ChainIDs)
	if p.Pools == nil {
		p.Pools = []domain.Pool{}
	}
	return p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
