package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokeball-ops/internal/storage/migrations"
)

func TestConn_MigrateIsRecordedOnce(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	again, err := conn.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "a restart applies nothing")

	all, err := migrations.Load(migrations.ClickHouse)
	require.NoError(t, err)
	versions, err := conn.AppliedVersions(ctx)
	require.NoError(t, err)
	for _, m := range all {
		assert.True(t, versions[m.Version], m.Name)
	}
}

func TestOpenDatabase_RequiresDatabase(t *testing.T) {
	_, err := OpenDatabase(context.Background(), "clickhouse://localhost:9000")
	assert.ErrorContains(t, err, "missing database")
}
