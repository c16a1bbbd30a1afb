package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithMigrations(t *testing.T) {
	t.Run("creates all ledger tables", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		for _, table := range []string{"schema_migrations", "companies", "jobs", "inserts", "api_keys", "migration_state"} {
			var count int
			err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "table %s should exist after migrations", table)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		db.Close()

		// Reopening must skip already-applied migrations without error.
		db, err = OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		var applied int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied)
		require.NoError(t, err)
		assert.Equal(t, 4, applied)
	})

	t.Run("enforces unique constraints from schema", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec(`INSERT INTO companies (id, name, name_key, created_at) VALUES ('c1', 'Acme', 'acme', CURRENT_TIMESTAMP)`)
		require.NoError(t, err)

		_, err = db.Exec(`INSERT INTO companies (id, name, name_key, created_at) VALUES ('c2', 'ACME', 'acme', CURRENT_TIMESTAMP)`)
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err), "duplicate name_key should be a unique violation")
	})

	t.Run("enforces foreign keys", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec(`INSERT INTO inserts (id, job_id, observed_at, created_at) VALUES ('i1', 'no-such-job', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
		assert.Error(t, err, "insert referencing a missing job must be rejected")
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(assert.AnError))
}

func TestIsDatabaseClosed(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := Open(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = db.QueryRow("SELECT 1").Scan(new(int))
	require.Error(t, err)
	assert.True(t, IsDatabaseClosed(err))

	assert.False(t, IsDatabaseClosed(nil))
	assert.True(t, IsDatabaseClosed(ErrDatabaseClosed))
}
