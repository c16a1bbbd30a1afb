package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/postwatch/postwatch/errors"
)

// ListCompanies returns all companies ordered by name.
func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(domain, ''), name_key, created_at
		FROM companies ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list companies")
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.NameKey, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan company")
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// ListJobs returns jobs, optionally filtered to one company, newest first.
func (s *Store) ListJobs(ctx context.Context, companyID string) ([]Job, error) {
	query := `
		SELECT id, company_id, title, location, COALESCE(external_ref, ''), fingerprint,
		       first_seen, last_seen, created_at
		FROM jobs`
	args := []interface{}{}
	if companyID != "" {
		query += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY last_seen DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Location, &j.ExternalRef,
			&j.Fingerprint, &j.FirstSeen, &j.LastSeen, &j.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan job")
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// GetJob returns one job by id, or errors.ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	j := &Job{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, title, location, COALESCE(external_ref, ''), fingerprint,
		       first_seen, last_seen, created_at
		FROM jobs WHERE id = ?`, id).
		Scan(&j.ID, &j.CompanyID, &j.Title, &j.Location, &j.ExternalRef, &j.Fingerprint,
			&j.FirstSeen, &j.LastSeen, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	return j, nil
}

// JobTimeline returns every ledger entry for a job, oldest first. This is
// the raw observation history that posting-lifetime analytics derive from.
func (s *Store) JobTimeline(ctx context.Context, jobID string) ([]Insert, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, source, observed_at, created_at
		FROM inserts WHERE job_id = ? ORDER BY observed_at`, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "timeline for job %s", jobID)
	}
	defer rows.Close()

	var inserts []Insert
	for rows.Next() {
		var in Insert
		if err := rows.Scan(&in.ID, &in.JobID, &in.Source, &in.ObservedAt, &in.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan insert")
		}
		inserts = append(inserts, in)
	}
	return inserts, rows.Err()
}

// GetStats returns ledger row counts and the observation time range.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM companies),
			(SELECT COUNT(*) FROM jobs),
			(SELECT COUNT(*) FROM inserts)`).
		Scan(&stats.Companies, &stats.Jobs, &stats.Inserts)
	if err != nil {
		return nil, errors.Wrap(err, "count ledger rows")
	}

	if stats.Inserts > 0 {
		// Plain column selects keep the TIMESTAMP declared type, which
		// MIN/MAX expressions would lose, so the driver can scan these
		// straight into time.Time.
		var first, last time.Time
		err = s.db.QueryRowContext(ctx,
			`SELECT observed_at FROM inserts ORDER BY observed_at ASC LIMIT 1`).Scan(&first)
		if err != nil {
			return nil, errors.Wrap(err, "first observation")
		}
		err = s.db.QueryRowContext(ctx,
			`SELECT observed_at FROM inserts ORDER BY observed_at DESC LIMIT 1`).Scan(&last)
		if err != nil {
			return nil, errors.Wrap(err, "last observation")
		}
		stats.FirstObservation = &first
		stats.LastObservation = &last
	}

	return stats, nil
}
