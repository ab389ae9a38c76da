package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/storage"
)

// ManifestStore is an in-memory implementation of storage.HarvestManifestStore.
type ManifestStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ShardManifest // keyed by YYYY-MM-DD
}

// NewManifestStore creates a new in-memory manifest store.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{
		data: make(map[string]*domain.ShardManifest),
	}
}

// Compile-time interface check.
var _ storage.HarvestManifestStore = (*ManifestStore)(nil)

func manifestKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}

// Upsert inserts or replaces the manifest row for m.Day.
func (s *ManifestStore) Upsert(_ context.Context, m *domain.ShardManifest) error {
	if m == nil || m.Day.IsZero() || m.State == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	s.data[manifestKey(m.Day)] = &cp
	return nil
}

// Get retrieves the manifest row for the UTC day containing the given time.
func (s *ManifestStore) Get(_ context.Context, day time.Time) (*domain.ShardManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data[manifestKey(day)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *m
	return &cp, nil
}

// ListByRun retrieves all manifest rows for a run, ordered by day ASC.
func (s *ManifestStore) ListByRun(_ context.Context, runID string) ([]*domain.ShardManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ShardManifest
	for _, m := range s.data {
		if m.RunID == runID {
			cp := *m
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})

	return out, nil
}
