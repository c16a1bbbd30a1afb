package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/postwatch/postwatch/errors"
)

// GetCheckpoint returns the last recorded migration checkpoint for a
// legacy source, or "" when the source has never been migrated.
func (s *Store) GetCheckpoint(ctx context.Context, source string) (string, error) {
	var checkpoint string
	err := s.db.QueryRowContext(ctx,
		`SELECT checkpoint FROM migration_state WHERE source = ?`, source,
	).Scan(&checkpoint)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "get checkpoint for %s", source)
	}
	return checkpoint, nil
}

// SetCheckpoint durably records migration progress for a legacy source.
func (s *Store) SetCheckpoint(ctx context.Context, source, checkpoint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_state (source, checkpoint, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET checkpoint = excluded.checkpoint, updated_at = excluded.updated_at`,
		source, checkpoint, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "set checkpoint for %s", source)
	}
	return nil
}
