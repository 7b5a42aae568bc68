package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/positions/internal/domain"
)

type mockPortfolio struct {
	result domain.Result
	err    error
}

func (m *mockPortfolio) Refresh(_ context.Context, _, _ string) (domain.Result, error) {
	return m.result, m.err
}

type mockRepo struct {
	saveErr      error
	savedRunID   string
	savedAddress string
	savedCcy     string
	savedData    json.RawMessage
	savedDate    time.Time
	latest       *Snapshot
	latestErr    error
	byDate       *Snapshot
	byDateErr    error
	list         []Snapshot
	listErr      error
}

func (m *mockRepo) Save(_ context.Context, runID, address, currency string, date time.Time, data json.RawMessage) error {
	m.savedRunID = runID
	m.savedAddress = address
	m.savedCcy = currency
	m.savedData = data
	m.savedDate = date
	return m.saveErr
}

func (m *mockRepo) GetLatest(_ context.Context, _, _ string) (*Snapshot, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	return m.latest, nil
}

func (m *mockRepo) GetByDate(_ context.Context, _, _ string, _ time.Time) (*Snapshot, error) {
	if m.byDateErr != nil {
		return nil, m.byDateErr
	}
	return m.byDate, nil
}

func (m *mockRepo) List(_ context.Context, _, _ string, _ int) ([]Snapshot, error) {
	return m.list, m.listErr
}

func sampleResult() domain.Result {
	return domain.Result{
		Positions: map[string]domain.ProtocolPosition{
			"aave": {Type: "aave", Totals: domain.Totals{Total: domain.MonetaryAmount{Amount: "1500", Display: "$1,500.00"}}},
		},
		Totals:   domain.Totals{Total: domain.MonetaryAmount{Amount: "1500", Display: "$1,500.00"}},
		Currency: "USD",
	}
}

func TestGenerateSuccess(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(&mockPortfolio{result: sampleResult()}, repo, nil)

	date := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)
	result, err := svc.Generate(context.Background(), "", "0xabc", "USD", date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Totals.Total.Amount != "1500" {
		t.Errorf("total = %q, want 1500", result.Totals.Total.Amount)
	}
	if _, err := uuid.Parse(repo.savedRunID); err != nil {
		t.Errorf("run id %q is not a uuid: %v", repo.savedRunID, err)
	}
	if repo.savedAddress != "0xabc" || repo.savedCcy != "USD" {
		t.Errorf("saved %q/%q, want 0xabc/USD", repo.savedAddress, repo.savedCcy)
	}
	if !repo.savedDate.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("savedDate = %v, want day start", repo.savedDate)
	}

	decoded, err := Decode(&Snapshot{Data: repo.savedData})
	if err != nil {
		t.Fatalf("decoding saved data: %v", err)
	}
	if decoded.Positions["aave"].Totals.Total.Display != "$1,500.00" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestGenerateKeepsRunID(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(&mockPortfolio{result: sampleResult()}, repo, nil)

	if _, err := svc.Generate(context.Background(), "run-1", "0xabc", "USD", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.savedRunID != "run-1" {
		t.Errorf("run id = %q, want run-1", repo.savedRunID)
	}
}

func TestGeneratePortfolioError(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(&mockPortfolio{err: errors.New("provider down")}, repo, nil)

	if _, err := svc.Generate(context.Background(), "", "0xabc", "USD", time.Now()); err == nil {
		t.Fatal("expected error from portfolio service")
	}
	if repo.savedData != nil {
		t.Error("nothing must be saved on portfolio error")
	}
}

func TestGenerateRepoSaveError(t *testing.T) {
	repo := &mockRepo{saveErr: errors.New("save failed")}
	svc := NewService(&mockPortfolio{result: sampleResult()}, repo, nil)

	if _, err := svc.Generate(context.Background(), "", "0xabc", "USD", time.Now()); err == nil {
		t.Fatal("expected error from repo save")
	}
}

func TestGetLatestNotFound(t *testing.T) {
	repo := &mockRepo{latestErr: ErrNotFound}
	svc := NewService(&mockPortfolio{}, repo, nil)

	if _, err := svc.GetLatest(context.Background(), "0xabc", "USD"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode(&Snapshot{ID: 7, Data: json.RawMessage(`{"positions":`)}); err == nil {
		t.Fatal("expected decode error")
	}
}
