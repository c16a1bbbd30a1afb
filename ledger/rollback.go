package ledger

import (
	"context"
	"time"

	"github.com/postwatch/postwatch/errors"
)

// Rollback deletes every ledger entry ingested at or after cutoff, then
// every job created at or after cutoff, then every company left with no
// jobs. It runs as a single transaction: either the whole window is
// undone or nothing is.
//
// Statement order matters. Inserts go first, jobs second, companies last,
// so the store holds referential integrity after every individual
// statement. A job created before the cutoff but observed again after it
// is NOT deleted; only its late inserts are, preserving historical jobs.
//
// Rollback does not coordinate with live ingestion. Operators should
// quiesce scrapers for the window being rolled back, or re-run the
// rollback until the result reports zero deletions.
func (s *Store) Rollback(ctx context.Context, cutoff time.Time) (*RollbackResult, error) {
	cutoffUTC := cutoff.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin rollback transaction")
	}
	defer tx.Rollback()

	result := &RollbackResult{}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM inserts WHERE created_at >= ?`, cutoffUTC)
	if err != nil {
		return nil, errors.Wrapf(err, "delete inserts since %s", cutoffUTC.Format(time.RFC3339))
	}
	result.DeletedInserts, _ = res.RowsAffected()

	// Any insert referencing these jobs was created no earlier than the
	// job itself, so the previous statement already removed it.
	res, err = tx.ExecContext(ctx,
		`DELETE FROM jobs WHERE created_at >= ?`, cutoffUTC)
	if err != nil {
		return nil, errors.Wrapf(err, "delete jobs since %s", cutoffUTC.Format(time.RFC3339))
	}
	result.DeletedJobs, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx,
		`DELETE FROM companies WHERE id NOT IN (SELECT DISTINCT company_id FROM jobs)`)
	if err != nil {
		return nil, errors.Wrap(err, "delete orphaned companies")
	}
	result.DeletedCompanies, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit rollback")
	}

	if s.logger != nil {
		s.logger.Infow("Rollback complete",
			"cutoff", cutoffUTC.Format(time.RFC3339),
			"deleted_inserts", result.DeletedInserts,
			"deleted_jobs", result.DeletedJobs,
			"deleted_companies", result.DeletedCompanies,
		)
	}

	return result, nil
}
