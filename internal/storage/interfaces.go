// Package storage defines persistence interfaces for the harvester.
package storage

import (
	"context"
	"time"

	"uniswap-econ-lab/internal/domain"
)

// SwapArchiveStore mirrors harvested swaps into a queryable archive.
// The archive is an optional sink; CSV shards remain the artifact of record.
type SwapArchiveStore interface {
	// InsertBulk appends a batch of swaps. Returns ErrDuplicateKey when the
	// batch collides with already archived ids.
	InsertBulk(ctx context.Context, records []*domain.SwapRecord) error

	// GetByPool retrieves swaps for one pool within [from, to] epoch seconds
	// (inclusive), ordered by ascending id.
	GetByPool(ctx context.Context, poolID string, from, to int64) ([]*domain.SwapRecord, error)

	// CountByDay counts archived swaps whose timestamp falls inside the UTC
	// day containing the given time.
	CountByDay(ctx context.Context, day time.Time) (int64, error)
}

// HarvestManifestStore is the per-day harvest ledger. One row per UTC day;
// re-harvesting a day upserts its row.
type HarvestManifestStore interface {
	// Upsert inserts or replaces the manifest row for m.Day.
	Upsert(ctx context.Context, m *domain.ShardManifest) error

	// Get retrieves the manifest row for the UTC day containing the given
	// time. Returns ErrNotFound when the day was never harvested.
	Get(ctx context.Context, day time.Time) (*domain.ShardManifest, error)

	// ListByRun retrieves all manifest rows for a run, ordered by day ASC.
	ListByRun(ctx context.Context, runID string) ([]*domain.ShardManifest, error)
}
