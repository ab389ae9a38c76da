package postgres

import (
	"context"
	"fmt"
	"time"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/storage"
)

// ManifestStore implements storage.HarvestManifestStore using PostgreSQL.
type ManifestStore struct {
	pool *Pool
}

// NewManifestStore creates a new ManifestStore.
func NewManifestStore(pool *Pool) *ManifestStore {
	return &ManifestStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HarvestManifestStore = (*ManifestStore)(nil)

// Upsert inserts or replaces the manifest row for m.Day.
func (s *ManifestStore) Upsert(ctx context.Context, m *domain.ShardManifest) error {
	if m == nil || m.Day.IsZero() || m.State == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO harvest_manifest (day, run_id, state, records, pages, path, digest, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (day) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			state = EXCLUDED.state,
			records = EXCLUDED.records,
			pages = EXCLUDED.pages,
			path = EXCLUDED.path,
			digest = EXCLUDED.digest,
			updated_at = EXCLUDED.updated_at
	`

	updatedAt := m.UpdatedAt
	if updatedAt == 0 {
		updatedAt = time.Now().Unix()
	}

	_, err := s.pool.Exec(ctx, query,
		m.Day.UTC().Format("2006-01-02"),
		m.RunID,
		m.State,
		m.Records,
		m.Pages,
		m.Path,
		m.Digest,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert manifest: %w", err)
	}
	return nil
}

// Get retrieves the manifest row for the UTC day containing the given time.
func (s *ManifestStore) Get(ctx context.Context, day time.Time) (*domain.ShardManifest, error) {
	query := `
		SELECT day, run_id, state, records, pages, path, digest, updated_at
		FROM harvest_manifest
		WHERE day = $1
	`

	row := s.pool.QueryRow(ctx, query, day.UTC().Format("2006-01-02"))

	m, err := scanManifest(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	return m, nil
}

// ListByRun retrieves all manifest rows for a run, ordered by day ASC.
func (s *ManifestStore) ListByRun(ctx context.Context, runID string) ([]*domain.ShardManifest, error) {
	query := `
		SELECT day, run_id, state, records, pages, path, digest, updated_at
		FROM harvest_manifest
		WHERE run_id = $1
		ORDER BY day ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list manifests by run: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShardManifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manifest row: %w", err)
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manifest rows: %w", err)
	}

	return out, nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanManifest scans one manifest row.
func scanManifest(row rowScanner) (*domain.ShardManifest, error) {
	var m domain.ShardManifest
	var day time.Time

	err := row.Scan(
		&day,
		&m.RunID,
		&m.State,
		&m.Records,
		&m.Pages,
		&m.Path,
		&m.Digest,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return &m, nil
}
