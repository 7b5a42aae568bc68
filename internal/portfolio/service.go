// Package portfolio serves transformed DeFi portfolios: it fetches the provider snapshot,
// runs the positions transform and caches the result per wallet and currency.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mtlprog/positions/internal/domain"
	"github.com/mtlprog/positions/internal/metrics"
	"github.com/mtlprog/positions/internal/positions"
)

// PositionsProvider defines the subset of the provider API used by Service.
type PositionsProvider interface {
	ListPositions(ctx context.Context, address, currency string) (domain.ListPositionsResponse, error)
}

// Service fetches raw position snapshots and converts them into portfolios.
type Service struct {
	provider PositionsProvider
	params   positions.Params
	cache    *cache.Cache
	metrics  *metrics.Metrics
}

// NewService creates a new portfolio Service. A zero ttl disables caching.
func NewService(provider PositionsProvider, params positions.Params, ttl time.Duration, m *metrics.Metrics) *Service {
	if provider == nil {
		panic("portfolio.NewService: provider must not be nil")
	}
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, 10*time.Minute)
	}
	return &Service{provider: provider, params: params, cache: c, metrics: m}
}

// FetchPortfolio returns the portfolio of a wallet in the given currency, served from cache
// when fresh. An empty currency uses the service default.
func (s *Service) FetchPortfolio(ctx context.Context, address, currency string) (domain.Result, error) {
	currency = s.currency(currency)
	key := cacheKey(address, currency)

	if s.cache != nil {
		if v, found := s.cache.Get(key); found {
			if res, ok := v.(domain.Result); ok {
				s.metrics.CacheHit(true)
				return res, nil
			}
		}
		s.metrics.CacheHit(false)
	}

	res, err := s.Refresh(ctx, address, currency)
	if err != nil {
		return domain.Result{}, err
	}
	return res, nil
}

// Refresh bypasses the cache, fetches a new snapshot and stores the transformed result.
func (s *Service) Refresh(ctx context.Context, address, currency string) (domain.Result, error) {
	currency = s.currency(currency)
	address = domain.NormalizeAddress(address)

	start := time.Now()
	resp, err := s.provider.ListPositions(ctx, address, currency)
	s.metrics.ObserveProvider(start, err)
	if err != nil {
		return domain.Result{}, fmt.Errorf("fetching positions for %s: %w", address, err)
	}

	params := s.params
	params.Currency = currency
	params.Logger = s.logger().With("address", address)

	res := positions.Transform(resp, params)
	s.metrics.ObserveResult(address, res)

	if s.cache != nil {
		s.cache.Set(cacheKey(address, currency), res, cache.DefaultExpiration)
	}
	return res, nil
}

// Invalidate drops every cached currency variant of a wallet.
func (s *Service) Invalidate(address string) {
	if s.cache == nil {
		return
	}
	prefix := strings.ToLower(address) + "_"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

// Currency returns the service default currency.
func (s *Service) Currency() string {
	return domain.NormalizeCurrency(s.params.Currency)
}

func (s *Service) currency(c string) string {
	if strings.TrimSpace(c) == "" {
		return s.Currency()
	}
	return domain.NormalizeCurrency(c)
}

func (s *Service) logger() *slog.Logger {
	if s.params.Logger != nil {
		return s.params.Logger
	}
	return slog.Default()
}

func cacheKey(address, currency string) string {
	return strings.ToLower(address) + "_" + currency
}
