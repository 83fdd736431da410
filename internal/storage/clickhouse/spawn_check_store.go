package clickhouse

import (
	"context"
	"fmt"
	"time"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/observability"
	"pokeball-ops/internal/storage"
)

// SpawnCheckStore implements storage.SpawnCheckStore using ClickHouse.
type SpawnCheckStore struct {
	conn *Conn
}

// NewSpawnCheckStore creates a new SpawnCheckStore.
func NewSpawnCheckStore(conn *Conn) *SpawnCheckStore {
	return &SpawnCheckStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SpawnCheckStore = (*SpawnCheckStore)(nil)

// Insert adds a new point. Returns ErrDuplicateKey if timestamp_ms exists.
// MergeTree does not enforce uniqueness, so the key is checked first.
func (s *SpawnCheckStore) Insert(ctx context.Context, p *domain.SpawnCheckPoint) error {
	if p == nil || p.TimestampMs <= 0 {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, p.TimestampMs)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO spawn_checks (
			timestamp_ms, central_before, central_after, spawned, repositioned, total_active
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		uint64(p.TimestampMs), uint16(p.CentralBefore), uint16(p.CentralAfter),
		uint16(p.Spawned), uint16(p.Repositioned), uint16(p.TotalActive),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_spawn_check", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SpawnCheckStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SpawnCheckPoint, error) {
	query := `
		SELECT timestamp_ms, central_before, central_after, spawned, repositioned, total_active
		FROM spawn_checks
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(max(start, 0)), uint64(max(end, 0)))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSpawnChecks(rows)
}

func (s *SpawnCheckStore) exists(ctx context.Context, timestampMs int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM spawn_checks WHERE timestamp_ms = ?`, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanSpawnChecks(rows chRows) ([]*domain.SpawnCheckPoint, error) {
	var points []*domain.SpawnCheckPoint

	for rows.Next() {
		var timestampMs uint64
		var before, after, spawned, repositioned, active uint16
		if err := rows.Scan(&timestampMs, &before, &after, &spawned, &repositioned, &active); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		points = append(points, &domain.SpawnCheckPoint{
			TimestampMs:   int64(timestampMs),
			CentralBefore: int(before),
			CentralAfter:  int(after),
			Spawned:       int(spawned),
			Repositioned:  int(repositioned),
			TotalActive:   int(active),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return points, nil
}
