package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/positions/internal/domain"
	"github.com/mtlprog/positions/internal/metrics"
)

// PortfolioService produces a fresh portfolio for a wallet.
type PortfolioService interface {
	Refresh(ctx context.Context, address, currency string) (domain.Result, error)
}

// Service manages snapshot generation and retrieval.
type Service struct {
	portfolio PortfolioService
	repo      Repository
	metrics   *metrics.Metrics
}

// NewService creates a new snapshot Service.
func NewService(portfolio PortfolioService, repo Repository, m *metrics.Metrics) *Service {
	if portfolio == nil || repo == nil {
		panic("snapshot.NewService: portfolio and repo must not be nil")
	}
	return &Service{portfolio: portfolio, repo: repo, metrics: m}
}

// NewRunID returns an identifier grouping the snapshots written by one generation run.
func NewRunID() string {
	return uuid.New().String()
}

// Generate fetches a fresh portfolio for the wallet and stores it as the snapshot of date.
// An existing snapshot for the same wallet, currency and day is replaced.
func (s *Service) Generate(ctx context.Context, runID, address, currency string, date time.Time) (domain.Result, error) {
	if runID == "" {
		runID = NewRunID()
	}

	res, err := s.portfolio.Refresh(ctx, address, currency)
	if err != nil {
		return domain.Result{}, fmt.Errorf("generating portfolio: %w", err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		return domain.Result{}, fmt.Errorf("marshaling portfolio: %w", err)
	}

	day := date.UTC().Truncate(24 * time.Hour)
	err = s.repo.Save(ctx, runID, address, res.Currency, day, data)
	s.metrics.SnapshotSaved(err)
	if err != nil {
		return domain.Result{}, fmt.Errorf("saving snapshot: %w", err)
	}

	slog.Info("snapshot saved", "run_id", runID, "address", address, "currency", res.Currency,
		"date", day.Format(time.DateOnly), "protocols", len(res.Positions))
	return res, nil
}

// GetLatest retrieves the most recent snapshot for the wallet.
func (s *Service) GetLatest(ctx context.Context, address, currency string) (*Snapshot, error) {
	return s.repo.GetLatest(ctx, address, currency)
}

// GetByDate retrieves a snapshot for a specific date.
func (s *Service) GetByDate(ctx context.Context, address, currency string, date time.Time) (*Snapshot, error) {
	return s.repo.GetByDate(ctx, address, currency, date)
}

// List retrieves recent snapshots.
func (s *Service) List(ctx context.Context, address, currency string, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, address, currency, limit)
}

// Decode unmarshals the stored portfolio of a snapshot.
func Decode(s *Snapshot) (domain.Result, error) {
	var res domain.Result
	if err := json.Unmarshal(s.Data, &res); err != nil {
		return domain.Result{}, fmt.Errorf("decoding snapshot %d: %w", s.ID, err)
	}
	return res, nil
}
