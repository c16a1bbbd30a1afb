package db

import (
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/postwatch/postwatch/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed
// database, typically during graceful shutdown.
var ErrDatabaseClosed = errors.New("database is closed")

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// violation. The ingestion engine treats these as "a concurrent writer got
// there first" and re-reads rather than failing.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	// Fallback for drivers that surface constraint failures as plain
	// strings (the test double in sqlmock does).
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsDatabaseClosed checks if an error indicates the database connection is
// closed. Handles both wrapped ErrDatabaseClosed errors and raw driver
// errors, which we cannot wrap at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "database is closed") ||
		strings.Contains(errMsg, "sql: database is closed")
}
