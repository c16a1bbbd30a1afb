package ledger

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/postwatch/postwatch/errors"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Write-path primitives take a Querier so the ingestion engine can run
// them inside its own transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Query constants
const (
	companyByKeyQuery = `
		SELECT id, name, COALESCE(domain, ''), name_key, created_at
		FROM companies WHERE name_key = ?`

	companyInsertQuery = `
		INSERT INTO companies (id, name, domain, name_key, created_at)
		VALUES (?, ?, ?, ?, ?)`

	jobByFingerprintQuery = `
		SELECT id, company_id, title, location, COALESCE(external_ref, ''), fingerprint,
		       first_seen, last_seen, created_at
		FROM jobs WHERE company_id = ? AND fingerprint = ?`

	jobInsertQuery = `
		INSERT INTO jobs (id, company_id, title, location, external_ref, fingerprint,
		                  first_seen, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	jobAdvanceLastSeenQuery = `
		UPDATE jobs SET last_seen = ? WHERE id = ? AND last_seen < ?`

	insertAppendQuery = `
		INSERT INTO inserts (id, job_id, source, observed_at, created_at)
		VALUES (?, ?, ?, ?, ?)`
)

// Store provides ledger persistence over the SQLite database.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a ledger store. logger may be nil.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying handle for callers that manage their own
// transactions (the ingestion engine).
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetCompanyByKey looks up a company by its normalized identity key.
// Returns errors.ErrNotFound when no company has that key.
func (s *Store) GetCompanyByKey(ctx context.Context, q Querier, nameKey string) (*Company, error) {
	c := &Company{}
	err := q.QueryRowContext(ctx, companyByKeyQuery, nameKey).
		Scan(&c.ID, &c.Name, &c.Domain, &c.NameKey, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("company with key %q", nameKey)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get company by key")
	}
	return c, nil
}

// InsertCompany writes a new company row. A unique violation on name_key
// means a concurrent writer created the company first; callers re-read and
// adopt the winner's id.
func (s *Store) InsertCompany(ctx context.Context, q Querier, c *Company) error {
	_, err := q.ExecContext(ctx, companyInsertQuery,
		c.ID, c.Name, nullable(c.Domain), c.NameKey, c.CreatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "insert company %q", c.NameKey)
	}
	if s.logger != nil {
		s.logger.Debugw("Company created", "company_id", c.ID, "name", c.Name)
	}
	return nil
}

// GetJobByFingerprint looks up a job by its identity pair.
// Returns errors.ErrNotFound when absent.
func (s *Store) GetJobByFingerprint(ctx context.Context, q Querier, companyID, fp string) (*Job, error) {
	j := &Job{}
	err := q.QueryRowContext(ctx, jobByFingerprintQuery, companyID, fp).
		Scan(&j.ID, &j.CompanyID, &j.Title, &j.Location, &j.ExternalRef, &j.Fingerprint,
			&j.FirstSeen, &j.LastSeen, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("job for company %s", companyID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get job by fingerprint")
	}
	return j, nil
}

// InsertJob writes a new job row. A unique violation on
// (company_id, fingerprint) means a concurrent writer won the race.
func (s *Store) InsertJob(ctx context.Context, q Querier, j *Job) error {
	_, err := q.ExecContext(ctx, jobInsertQuery,
		j.ID, j.CompanyID, j.Title, j.Location, nullable(j.ExternalRef), j.Fingerprint,
		j.FirstSeen.UTC(), j.LastSeen.UTC(), j.CreatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "insert job for company %s", j.CompanyID)
	}
	if s.logger != nil {
		s.logger.Debugw("Job created", "job_id", j.ID, "company_id", j.CompanyID, "title", j.Title)
	}
	return nil
}

// AdvanceJobLastSeen moves a job's last_seen forward to observedAt.
// The guard in the statement keeps last_seen monotonically non-decreasing:
// out-of-order observations never move it backward.
func (s *Store) AdvanceJobLastSeen(ctx context.Context, q Querier, jobID string, observedAt time.Time) error {
	t := observedAt.UTC()
	_, err := q.ExecContext(ctx, jobAdvanceLastSeenQuery, t, jobID, t)
	if err != nil {
		return errors.Wrapf(err, "advance last_seen for job %s", jobID)
	}
	return nil
}

// AppendInsert writes one ledger entry. Every accepted observation appends
// exactly one, including the observation that created the job.
func (s *Store) AppendInsert(ctx context.Context, q Querier, in *Insert) error {
	_, err := q.ExecContext(ctx, insertAppendQuery,
		in.ID, in.JobID, in.Source, in.ObservedAt.UTC(), in.CreatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "append insert for job %s", in.JobID)
	}
	return nil
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
