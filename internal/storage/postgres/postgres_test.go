package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokeball-ops/internal/storage/migrations"
)

func TestPool_MigrateIsRecordedOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	again, err := pool.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "a restart applies nothing")

	all, err := migrations.Load(migrations.Postgres)
	require.NoError(t, err)
	versions, err := pool.AppliedVersions(ctx)
	require.NoError(t, err)
	for _, m := range all {
		assert.True(t, versions[m.Version], m.Name)
	}

	var appName string
	require.NoError(t, pool.QueryRow(ctx, `SHOW application_name`).Scan(&appName))
	assert.Equal(t, applicationName, appName)
}

func TestPool_ApplyMigrationRollsBackOnFailure(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	bad := migrations.Migration{
		Version:    900,
		Name:       "900_broken.sql",
		Statements: []string{"CREATE TABLE half_done (id INT); SELECT * FROM missing_table;"},
	}
	require.Error(t, pool.ApplyMigration(ctx, bad))

	versions, err := pool.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.False(t, versions[900])

	var exists bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT to_regclass('half_done') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists)
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, isDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicateKeyError(errors.New("boom")))
	assert.False(t, isDuplicateKeyError(nil))
}
