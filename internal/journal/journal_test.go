package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokeball-ops/internal/domain"
)

func TestWriter_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "pipeline")
	w.now = func() time.Time { return time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC) }

	require.NoError(t, w.WritePhase(&domain.PhaseRecord{
		RunID:      "run-1",
		Phase:      domain.PhaseSwap,
		Status:     domain.PhaseStatusSuccess,
		FinishedAt: 1714570200000,
	}))
	require.NoError(t, w.WriteSpawnCheck(1714570201000, &domain.SpawnManagerResult{
		CentralCountBefore: 2,
		CentralCountAfter:  8,
		SpawnedCount:       6,
		ActionLog:          []string{"spawned slot 0"},
	}))
	require.NoError(t, w.Close())

	entries, err := ReadFile(filepath.Join(dir, "pipeline-2024-05-01-13.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, KindPhase, entries[0].Kind)
	require.NotNil(t, entries[0].Phase)
	assert.Equal(t, "run-1", entries[0].Phase.RunID)

	assert.Equal(t, KindSpawnCheck, entries[1].Kind)
	require.NotNil(t, entries[1].SpawnCheck)
	assert.Equal(t, 6, entries[1].SpawnCheck.SpawnedCount)
}

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "pipeline")

	current := time.Date(2024, 5, 1, 13, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return current }
	require.NoError(t, w.Write(Entry{Kind: KindPhase, TimestampMs: 1}))

	current = current.Add(2 * time.Minute)
	require.NoError(t, w.Write(Entry{Kind: KindPhase, TimestampMs: 2}))
	require.NoError(t, w.Close())

	files, err := filepath.Glob(filepath.Join(dir, "pipeline-*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	first, err := ReadFile(filepath.Join(dir, "pipeline-2024-05-01-13.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), first[0].TimestampMs)
}
