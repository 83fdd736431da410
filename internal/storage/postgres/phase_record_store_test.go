package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/storage"
)

func TestPhaseRecordStore_InsertAndGetByRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPhaseRecordStore(pool)

	swap := &domain.PhaseRecord{
		RunID:      "run-1",
		Trigger:    domain.TriggerTick,
		Phase:      domain.PhaseSwap,
		Status:     domain.PhaseStatusSuccess,
		StartedAt:  1700000000000,
		FinishedAt: 1700000005000,
		Details:    map[string]any{"amount_spent": 5000000, "route": "Raydium"},
	}
	split := &domain.PhaseRecord{
		RunID:      "run-1",
		Trigger:    domain.TriggerTick,
		Phase:      domain.PhaseSplit,
		Status:     domain.PhaseStatusError,
		StartedAt:  1700000006000,
		FinishedAt: 1700000007000,
		Error:      "treasury transfer: insufficient funds",
	}

	require.NoError(t, store.Insert(ctx, split))
	require.NoError(t, store.Insert(ctx, swap))

	records, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.PhaseSwap, records[0].Phase)
	assert.Equal(t, domain.TriggerTick, records[0].Trigger)
	assert.Equal(t, int64(1700000005000), records[0].FinishedAt)
	assert.Equal(t, "Raydium", records[0].Details["route"])
	assert.InDelta(t, 5000000, records[0].Details["amount_spent"], 0.1)

	assert.Equal(t, domain.PhaseSplit, records[1].Phase)
	assert.Equal(t, "treasury transfer: insufficient funds", records[1].Error)
	assert.Nil(t, records[1].Details)

	_, err = store.GetByRunID(ctx, "run-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPhaseRecordStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPhaseRecordStore(pool)

	r := &domain.PhaseRecord{RunID: "run-1", Phase: domain.PhaseSpawn, Trigger: domain.TriggerManual, Status: domain.PhaseStatusSuccess}
	require.NoError(t, store.Insert(ctx, r))

	err := store.Insert(ctx, r)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPhaseRecordStore_ListRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPhaseRecordStore(pool)

	for i, runID := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, store.Insert(ctx, &domain.PhaseRecord{
			RunID:     runID,
			Phase:     domain.PhaseSpawn,
			Trigger:   domain.TriggerTick,
			Status:    domain.PhaseStatusSuccess,
			StartedAt: int64(1700000000000 + i*60000),
		}))
	}

	records, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-3", records[0].RunID)
	assert.Equal(t, "run-2", records[1].RunID)

	_, err = store.ListRecent(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
