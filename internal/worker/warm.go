package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/positions/internal/domain"
)

// PortfolioRefresher re-fetches a wallet portfolio and stores it in the cache.
type PortfolioRefresher interface {
	Refresh(ctx context.Context, address, currency string) (domain.Result, error)
}

// WarmWorker keeps cached portfolios of tracked wallets fresh when no snapshot store is configured.
type WarmWorker struct {
	portfolios PortfolioRefresher
	wallets    []string
	currency   string
	interval   time.Duration
}

// NewWarmWorker creates a new WarmWorker.
func NewWarmWorker(portfolios PortfolioRefresher, wallets []string, currency string, interval time.Duration) *WarmWorker {
	return &WarmWorker{
		portfolios: portfolios,
		wallets:    wallets,
		currency:   currency,
		interval:   interval,
	}
}

func (w *WarmWorker) warm(ctx context.Context) {
	for _, addr := range w.wallets {
		if _, err := w.portfolios.Refresh(ctx, addr, w.currency); err != nil {
			slog.Error("WarmWorker: refresh failed", "address", addr, "error", err)
		}
	}
}

// Run starts the warm worker loop. It blocks until the context is cancelled.
func (w *WarmWorker) Run(ctx context.Context) {
	if len(w.wallets) == 0 {
		return
	}
	slog.Info("WarmWorker: starting", "wallets", len(w.wallets))

	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("WarmWorker: shutting down")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}
