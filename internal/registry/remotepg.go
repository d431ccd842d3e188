package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// ddlModels creates the table used by [PostgresSource] to persist a remote
// model-metadata feed. It is idempotent so Migrate can run on every startup.
const ddlModels = `
	CREATE TABLE IF NOT EXISTS ratatoskr_models (
		id         TEXT PRIMARY KEY,
		metadata   JSONB       NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// PostgresSource is an alternate [Snapshot] backing store for deployments
// that already run Postgres and would rather query a table than manage a
// JSON file or poll an HTTP feed. It is selected by setting
// [RemoteRegistryConfig.PostgresDSN].
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects to dsn and ensures the backing table exists.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: connect postgres: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSource{pool: pool}, nil
}

// Migrate applies the schema PostgresSource depends on. Safe to call
// repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlModels); err != nil {
		return fmt.Errorf("registry: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// Load reads every row into a [Snapshot]. The returned snapshot's FetchedAt
// is the most recent row's fetched_at, or the zero time if the table is
// empty.
func (s *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	const q = `SELECT id, metadata, fetched_at FROM ratatoskr_models`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("registry: postgres load: %w", err)
	}
	defer rows.Close()

	snap := &Snapshot{Version: snapshotVersion}
	for rows.Next() {
		var (
			id        string
			raw       []byte
			fetchedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &fetchedAt); err != nil {
			return nil, fmt.Errorf("registry: postgres scan: %w", err)
		}
		var model ratatoskr.ModelMetadata
		if err := json.Unmarshal(raw, &model); err != nil {
			return nil, fmt.Errorf("registry: postgres decode %q: %w", id, err)
		}
		snap.Models = append(snap.Models, model)
		if fetchedAt.After(snap.FetchedAt) {
			snap.FetchedAt = fetchedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: postgres rows: %w", err)
	}
	return snap, nil
}

// Save upserts every model in snap, each timestamped with the same
// fetched_at so a single Load afterwards reports one consistent FetchedAt.
func (s *PostgresSource) Save(ctx context.Context, snap *Snapshot) error {
	const q = `
		INSERT INTO ratatoskr_models (id, metadata, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			metadata   = EXCLUDED.metadata,
			fetched_at = EXCLUDED.fetched_at`

	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	for _, model := range snap.Models {
		raw, err := json.Marshal(model)
		if err != nil {
			return fmt.Errorf("registry: postgres encode %q: %w", model.ID, err)
		}
		if _, err := s.pool.Exec(ctx, q, model.ID, raw, fetchedAt); err != nil {
			return fmt.Errorf("registry: postgres upsert %q: %w", model.ID, err)
		}
	}
	return nil
}
