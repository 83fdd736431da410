package storage

import (
	"context"
	"errors"

	"pokeball-ops/internal/domain"
)

// Record stores are append-only: a phase record or spawn sample is written
// once per run and never updated.
var (
	// ErrNotFound means no phase records exist for the requested run.
	ErrNotFound = errors.New("run has no phase records")

	// ErrDuplicateKey means the (run_id, phase) pair or spawn sample timestamp
	// is already stored.
	ErrDuplicateKey = errors.New("record already stored")

	// ErrInvalidInput means a record is missing its run id, phase or timestamp,
	// or a query limit is not positive.
	ErrInvalidInput = errors.New("invalid record")
)

// PhaseRecordStore provides access to pipeline phase audit records.
type PhaseRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if (run_id, phase) exists.
	Insert(ctx context.Context, r *domain.PhaseRecord) error

	// GetByRunID retrieves all records of one run, ordered by started_at ASC.
	// Returns ErrNotFound if the run has no records.
	GetByRunID(ctx context.Context, runID string) ([]*domain.PhaseRecord, error)

	// ListRecent retrieves up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.PhaseRecord, error)
}

// SpawnCheckStore provides access to the spawn maintenance time series.
type SpawnCheckStore interface {
	// Insert adds a new point. Returns ErrDuplicateKey if timestamp_ms exists.
	Insert(ctx context.Context, p *domain.SpawnCheckPoint) error

	// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SpawnCheckPoint, error)
}
