package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/positions/internal/domain"
	"github.com/mtlprog/positions/internal/metrics"
	"github.com/mtlprog/positions/internal/snapshot"
)

// SnapshotGenerator defines the interface for generating snapshots.
type SnapshotGenerator interface {
	Generate(ctx context.Context, runID, address, currency string, date time.Time) (domain.Result, error)
}

// AfterRefreshHook is called after each refresh run with the wallets that succeeded.
type AfterRefreshHook interface {
	Export(ctx context.Context, date time.Time, portfolios []domain.WalletPortfolio) error
}

// RefreshWorker periodically snapshots the portfolios of tracked wallets.
type RefreshWorker struct {
	generator   SnapshotGenerator
	wallets     []string
	currency    string
	interval    time.Duration
	concurrency int
	hook        AfterRefreshHook // optional
	metrics     *metrics.Metrics
}

// NewRefreshWorker creates a new RefreshWorker with an optional post-run hook.
func NewRefreshWorker(generator SnapshotGenerator, wallets []string, currency string, interval time.Duration, concurrency int, hook AfterRefreshHook, m *metrics.Metrics) *RefreshWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RefreshWorker{
		generator:   generator,
		wallets:     wallets,
		currency:    currency,
		interval:    interval,
		concurrency: concurrency,
		hook:        hook,
		metrics:     m,
	}
}

// utcDate returns the current date normalized to midnight UTC.
func utcDate() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// RunOnce snapshots every tracked wallet with bounded concurrency. A failing wallet does not
// stop the others; the joined errors are returned after the hook ran on the successes.
func (w *RefreshWorker) RunOnce(ctx context.Context) ([]domain.WalletPortfolio, error) {
	runID := snapshot.NewRunID()
	date := utcDate()

	var (
		mu      sync.Mutex
		results = make([]*domain.WalletPortfolio, len(w.wallets))
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, addr := range w.wallets {
		g.Go(func() error {
			res, err := w.generator.Generate(gctx, runID, addr, w.currency, date)
			if err != nil {
				slog.Error("RefreshWorker: wallet refresh failed", "run_id", runID, "address", addr, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = &domain.WalletPortfolio{Address: addr, Result: res}
			return nil
		})
	}
	_ = g.Wait()

	portfolios := make([]domain.WalletPortfolio, 0, len(w.wallets))
	for _, r := range results {
		if r != nil {
			portfolios = append(portfolios, *r)
		}
	}

	err := errors.Join(errs...)
	w.metrics.RefreshRun(err)
	slog.Info("RefreshWorker: run completed", "run_id", runID, "wallets", len(w.wallets), "succeeded", len(portfolios))

	if len(portfolios) > 0 {
		w.runHook(ctx, date, portfolios)
	}
	return portfolios, err
}

// runHook calls the post-run hook if one is configured.
func (w *RefreshWorker) runHook(ctx context.Context, date time.Time, portfolios []domain.WalletPortfolio) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, date, portfolios); err != nil {
		slog.Error("RefreshWorker: export hook failed", "error", err)
	} else {
		slog.Info("RefreshWorker: export hook completed")
	}
}

// Run starts the refresh worker loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	if len(w.wallets) == 0 {
		slog.Info("RefreshWorker: no tracked wallets, not starting")
		return
	}
	slog.Info("RefreshWorker: starting", "wallets", len(w.wallets), "interval", w.interval)

	// Refresh immediately on startup
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}
