package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested snapshot was not found.
var ErrNotFound = errors.New("snapshot not found")

// MaxListLimit caps the number of snapshots returned by List.
const MaxListLimit = 365

// Snapshot represents a stored portfolio snapshot of one wallet for one day.
type Snapshot struct {
	ID           int64           `json:"id"`
	RunID        string          `json:"runId"`
	Address      string          `json:"address"`
	Currency     string          `json:"currency"`
	SnapshotDate time.Time       `json:"snapshotDate"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for snapshots.
type Repository interface {
	Save(ctx context.Context, runID, address, currency string, date time.Time, data json.RawMessage) error
	GetLatest(ctx context.Context, address, currency string) (*Snapshot, error)
	GetByDate(ctx context.Context, address, currency string, date time.Time) (*Snapshot, error)
	List(ctx context.Context, address, currency string, limit int) ([]Snapshot, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectColumns = `SELECT id, run_id::text, address, currency, snapshot_date, data, created_at FROM position_snapshots`

func (r *PgRepository) Save(ctx context.Context, runID, address, currency string, date time.Time, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO position_snapshots (run_id, address, currency, snapshot_date, data)
		 VALUES ($1::uuid, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (address, currency, snapshot_date)
		 DO UPDATE SET data = $5::jsonb, run_id = $1::uuid, created_at = NOW()`,
		runID, strings.ToLower(address), currency, date, data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context, address, currency string) (*Snapshot, error) {
	s, err := scanSnapshot(r.pool.QueryRow(ctx,
		selectColumns+`
		 WHERE address = $1 AND currency = $2
		 ORDER BY snapshot_date DESC
		 LIMIT 1`, strings.ToLower(address), currency))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return s, nil
}

func (r *PgRepository) GetByDate(ctx context.Context, address, currency string, date time.Time) (*Snapshot, error) {
	s, err := scanSnapshot(r.pool.QueryRow(ctx,
		selectColumns+`
		 WHERE address = $1 AND currency = $2 AND snapshot_date = $3`,
		strings.ToLower(address), currency, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot by date: %w", err)
	}
	return s, nil
}

func (r *PgRepository) List(ctx context.Context, address, currency string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	limit = min(limit, MaxListLimit)

	rows, err := r.pool.Query(ctx,
		selectColumns+`
		 WHERE address = $1 AND currency = $2
		 ORDER BY snapshot_date DESC
		 LIMIT $3`, strings.ToLower(address), currency, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	if err := row.Scan(&s.ID, &s.RunID, &s.Address, &s.Currency, &s.SnapshotDate, &s.Data, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
