package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/positions/internal/api"
	"github.com/mtlprog/positions/internal/config"
	"github.com/mtlprog/positions/internal/database"
	"github.com/mtlprog/positions/internal/export"
	"github.com/mtlprog/positions/internal/logging"
	"github.com/mtlprog/positions/internal/metrics"
	"github.com/mtlprog/positions/internal/portfolio"
	"github.com/mtlprog/positions/internal/positions"
	"github.com/mtlprog/positions/internal/provider"
	"github.com/mtlprog/positions/internal/snapshot"
	"github.com/mtlprog/positions/internal/worker"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API and the refresh worker",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	registry, err := positions.LoadRegistry(cfg.RegistryFile)
	if err != nil {
		return fmt.Errorf("loading protocol registry: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Create provider client
	client := provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderRateLimit,
		cfg.ProviderRetryMax, cfg.ProviderRetryBaseDelay)

	portfolioSvc := portfolio.NewService(client, positions.Params{
		Currency:        cfg.Currency,
		ThresholdFilter: cfg.ThresholdFilter,
		MinValue:        cfg.MinValue,
		Registry:        registry,
		Logger:          logger,
	}, cfg.CacheTTL, m)

	g, gctx := errgroup.WithContext(ctx)

	// Snapshots need a database; without one only live positions are served.
	var snapshotSvc *snapshot.Service
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		snapshotSvc = snapshot.NewService(portfolioSvc, snapshot.NewPgRepository(pool), m)

		hook, err := exportHook(ctx, cfg)
		if err != nil {
			return err
		}
		refresh := worker.NewRefreshWorker(snapshotSvc, cfg.TrackedWallets, cfg.Currency,
			cfg.RefreshInterval, cfg.RefreshConcurrency, hook, m)
		g.Go(func() error {
			refresh.Run(gctx)
			return nil
		})
	} else {
		warm := worker.NewWarmWorker(portfolioSvc, cfg.TrackedWallets, cfg.Currency, cfg.RefreshInterval)
		g.Go(func() error {
			warm.Run(gctx)
			return nil
		})
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, portfolioSvc, snapshotSvc, m, cfg.AdminAPIKey)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("Shutdown complete")
	return err
}

// exportHook builds the post-refresh export from the configured destinations, or nil when none is set.
func exportHook(ctx context.Context, cfg config.Config) (worker.AfterRefreshHook, error) {
	var writers []export.Writer

	if cfg.XLSXExportDir != "" {
		w, err := export.NewXLSXWriter(cfg.XLSXExportDir)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
		w, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("creating sheets writer: %w", err)
		}
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		return nil, nil
	}
	return export.NewService(writers...), nil
}
