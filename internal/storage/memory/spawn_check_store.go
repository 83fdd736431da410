package memory

import (
	"context"
	"sort"
	"sync"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/storage"
)

// SpawnCheckStore is an in-memory implementation of storage.SpawnCheckStore.
type SpawnCheckStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.SpawnCheckPoint // keyed by timestamp_ms
}

// NewSpawnCheckStore creates a new in-memory spawn check store.
func NewSpawnCheckStore() *SpawnCheckStore {
	return &SpawnCheckStore{
		data: make(map[int64]*domain.SpawnCheckPoint),
	}
}

// Compile-time interface check.
var _ storage.SpawnCheckStore = (*SpawnCheckStore)(nil)

// Insert adds a new point. Returns ErrDuplicateKey if timestamp_ms exists.
func (s *SpawnCheckStore) Insert(_ context.Context, p *domain.SpawnCheckPoint) error {
	if p == nil || p.TimestampMs <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.TimestampMs]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.TimestampMs] = &copy
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SpawnCheckStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.SpawnCheckPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SpawnCheckPoint
	for ts, p := range s.data {
		if ts >= start && ts <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
