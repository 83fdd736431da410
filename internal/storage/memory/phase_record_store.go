package memory

import (
	"context"
	"sort"
	"sync"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/storage"
)

type phaseKey struct {
	runID string
	phase string
}

// PhaseRecordStore is an in-memory implementation of storage.PhaseRecordStore.
type PhaseRecordStore struct {
	mu    sync.RWMutex
	data  map[phaseKey]*domain.PhaseRecord
	order []phaseKey // insertion order
}

// NewPhaseRecordStore creates a new in-memory phase record store.
func NewPhaseRecordStore() *PhaseRecordStore {
	return &PhaseRecordStore{
		data: make(map[phaseKey]*domain.PhaseRecord),
	}
}

// Compile-time interface check.
var _ storage.PhaseRecordStore = (*PhaseRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if (run_id, phase) exists.
func (s *PhaseRecordStore) Insert(_ context.Context, r *domain.PhaseRecord) error {
	if r == nil || r.RunID == "" || r.Phase == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := phaseKey{r.RunID, r.Phase}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[k] = cloneRecord(r)
	s.order = append(s.order, k)
	return nil
}

// GetByRunID retrieves all records of one run, ordered by started_at ASC.
func (s *PhaseRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.PhaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PhaseRecord
	for _, k := range s.order {
		if k.runID == runID {
			result = append(result, cloneRecord(s.data[k]))
		}
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt < result[j].StartedAt
	})
	return result, nil
}

// ListRecent retrieves up to limit records, newest first.
func (s *PhaseRecordStore) ListRecent(_ context.Context, limit int) ([]*domain.PhaseRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PhaseRecord, 0, len(s.order))
	for _, k := range s.order {
		result = append(result, cloneRecord(s.data[k]))
	}

	// Newest first; insertion order breaks ties.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt > result[j].StartedAt
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneRecord(r *domain.PhaseRecord) *domain.PhaseRecord {
	c := *r
	if r.Details != nil {
		c.Details = make(map[string]any, len(r.Details))
		for k, v := range r.Details {
			c.Details[k] = v
		}
	}
	return &c
}
