package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/storage"
)

// SwapArchiveStore is an in-memory implementation of storage.SwapArchiveStore.
type SwapArchiveStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SwapRecord // keyed by swap id
}

// NewSwapArchiveStore creates a new in-memory swap archive.
func NewSwapArchiveStore() *SwapArchiveStore {
	return &SwapArchiveStore{
		data: make(map[string]*domain.SwapRecord),
	}
}

// Compile-time interface check.
var _ storage.SwapArchiveStore = (*SwapArchiveStore)(nil)

// InsertBulk appends records atomically. Fails the entire batch on any
// duplicate, existing or intra-batch.
func (s *SwapArchiveStore) InsertBulk(_ context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchIDs := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[rec.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchIDs[rec.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchIDs[rec.ID] = struct{}{}
	}

	for _, rec := range records {
		cp := *rec
		s.data[rec.ID] = &cp
	}

	return nil
}

// GetByPool retrieves swaps for one pool within [from, to], ordered by id ASC.
func (s *SwapArchiveStore) GetByPool(_ context.Context, poolID string, from, to int64) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.SwapRecord
	for _, rec := range s.data {
		if rec.PoolID == poolID && rec.Timestamp >= from && rec.Timestamp <= to {
			cp := *rec
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// CountByDay counts archived swaps in the UTC day containing the given time.
func (s *SwapArchiveStore) CountByDay(_ context.Context, day time.Time) (int64, error) {
	window := domain.NewDayWindow(day)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rec := range s.data {
		if window.Contains(rec.Timestamp) {
			n++
		}
	}
	return n, nil
}
