package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/postwatch/postwatch/errors"
)

// Open opens the SQLite ledger database at the specified path with
// settings suited to concurrent ingestion. If logger is provided, logs
// database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "path", path)
	}
	// Immediate transactions take the write lock at BEGIN, so concurrent
	// ingest transactions queue on the busy timeout instead of deadlocking
	// on a read-to-write lock upgrade. Foreign keys and the busy timeout
	// are per-connection settings and must ride the DSN so every pooled
	// connection gets them.
	dsn := "file:" + path + "?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// WAL mode allows concurrent reads during writes. It is a property of
	// the database file, so setting it once is enough.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}

	if logger != nil {
		logger.Infow("Database opened",
			"path", path,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// OpenWithMigrations opens the database and applies any pending migrations.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	return db, nil
}
