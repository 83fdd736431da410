package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/observability"
	"pokeball-ops/internal/storage"
)

// PhaseRecordStore implements storage.PhaseRecordStore using PostgreSQL.
type PhaseRecordStore struct {
	pool *Pool
}

// NewPhaseRecordStore creates a new PhaseRecordStore.
func NewPhaseRecordStore(pool *Pool) *PhaseRecordStore {
	return &PhaseRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PhaseRecordStore = (*PhaseRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if (run_id, phase) exists.
func (s *PhaseRecordStore) Insert(ctx context.Context, r *domain.PhaseRecord) error {
	if r == nil || r.RunID == "" || r.Phase == "" {
		return storage.ErrInvalidInput
	}

	var details []byte
	if r.Details != nil {
		var err error
		details, err = json.Marshal(r.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO phase_records (
			run_id, phase, trigger, status, started_at, finished_at, error, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Phase, r.Trigger, r.Status, r.StartedAt, r.FinishedAt, r.Error, details,
	)
	observability.RecordDBQuery("postgres", "insert_phase_record", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert phase record: %w", err)
	}
	return nil
}

// GetByRunID retrieves all records of one run, ordered by started_at ASC.
func (s *PhaseRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.PhaseRecord, error) {
	query := `
		SELECT run_id, phase, trigger, status, started_at, finished_at, error, details
		FROM phase_records
		WHERE run_id = $1
		ORDER BY started_at ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query phase records by run: %w", err)
	}
	defer rows.Close()

	records, err := scanPhaseRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records, nil
}

// ListRecent retrieves up to limit records, newest first.
func (s *PhaseRecordStore) ListRecent(ctx context.Context, limit int) ([]*domain.PhaseRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT run_id, phase, trigger, status, started_at, finished_at, error, details
		FROM phase_records
		ORDER BY started_at DESC
		LIMIT $1
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, limit)
	observability.RecordDBQuery("postgres", "list_phase_records", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query recent phase records: %w", err)
	}
	defer rows.Close()

	return scanPhaseRecords(rows)
}

func scanPhaseRecords(rows pgx.Rows) ([]*domain.PhaseRecord, error) {
	var records []*domain.PhaseRecord
	for rows.Next() {
		var r domain.PhaseRecord
		var details []byte
		if err := rows.Scan(&r.RunID, &r.Phase, &r.Trigger, &r.Status, &r.StartedAt, &r.FinishedAt, &r.Error, &details); err != nil {
			return nil, fmt.Errorf("scan phase record: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &r.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phase records: %w", err)
	}
	return records, nil
}
