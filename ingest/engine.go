// Package ingest implements the deduplicating ingestion engine.
//
// Each observation runs as one bounded transaction against the ledger:
// resolve identity keys, create or adopt the company, create or touch the
// job, append exactly one ledger entry. The engine keeps no shared mutable
// state; all coordination between concurrent writers happens through the
// store's unique constraints, with a bounded retry when a race is lost.
package ingest

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/postwatch/postwatch/db"
	"github.com/postwatch/postwatch/errors"
	"github.com/postwatch/postwatch/fingerprint"
	"github.com/postwatch/postwatch/ledger"
)

// maxConflictRetries bounds how many times one observation re-runs its
// lookup-then-insert sequence after losing a unique-constraint race.
const maxConflictRetries = 3

// Observation is one reported sighting of a job posting, from a live
// scraper or a replayed legacy record.
type Observation struct {
	CompanyName string    `json:"company_name"`
	Domain      string    `json:"domain,omitempty"`
	Title       string    `json:"title"`
	Location    string    `json:"location,omitempty"`
	ExternalRef string    `json:"external_ref,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
	Source      string    `json:"source,omitempty"`
}

// Validate rejects observations missing required fields. Runs before any
// transaction; validation failures are never retried.
func (o Observation) Validate() error {
	if o.CompanyName == "" {
		return errors.NewValidationError("observation missing company name")
	}
	if o.Title == "" {
		return errors.NewValidationError("observation missing job title")
	}
	if o.ObservedAt.IsZero() {
		return errors.NewValidationError("observation missing observed-at timestamp")
	}
	return nil
}

// Result identifies the entities an observation resolved to.
type Result struct {
	CompanyID string `json:"company_id"`
	JobID     string `json:"job_id"`
	InsertID  string `json:"insert_id"`
	WasNewJob bool   `json:"was_new_job"`
}

// Engine ingests observations into the ledger.
type Engine struct {
	store  *ledger.Store
	logger *zap.SugaredLogger

	// now is the ingestion clock; overridable in tests.
	now func() time.Time
}

// NewEngine creates an ingestion engine. logger may be nil.
func NewEngine(store *ledger.Store, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest records one observation and returns the resolved entity ids.
//
// Re-submitting an identical observation never creates a second company or
// job row; it appends exactly one more insert row. Concurrent calls racing
// on the same company or job key are arbitrated by the store's unique
// constraints: a writer that loses re-reads the winner's row and continues.
func (e *Engine) Ingest(ctx context.Context, o Observation) (*Result, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	keys := fingerprint.Resolve(fingerprint.Observation{
		CompanyName: o.CompanyName,
		Domain:      o.Domain,
		Title:       o.Title,
		Location:    o.Location,
		ExternalRef: o.ExternalRef,
	})

	var lastConflict error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		result, err := e.ingestOnce(ctx, o, keys)
		if err == nil {
			return result, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, err
		}
		// Lost a race on the company or job key. The winner's row is
		// committed now, so the next pass adopts it.
		lastConflict = err
		if e.logger != nil {
			e.logger.Debugw("Retrying after unique-constraint race",
				"company_key", keys.CompanyKey,
				"attempt", attempt+1,
				"error", err,
			)
		}
	}

	return nil, errors.Wrapf(errors.ErrConflictRetryExhausted,
		"company key %q after %d attempts: %v", keys.CompanyKey, maxConflictRetries, lastConflict)
}

// ingestOnce runs one lookup-then-branch pass in a single transaction.
// Unique-violation errors bubble up for the caller's retry loop.
func (e *Engine) ingestOnce(ctx context.Context, o Observation, keys fingerprint.Keys) (*Result, error) {
	tx, err := e.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, err.Error())
	}
	defer tx.Rollback()

	now := e.now().UTC()
	observedAt := o.ObservedAt.UTC()

	companyID, err := e.resolveCompany(ctx, tx, o, keys.CompanyKey, now)
	if err != nil {
		return nil, err
	}

	jobID, wasNewJob, err := e.resolveJob(ctx, tx, o, companyID, keys.JobFingerprint, observedAt, now)
	if err != nil {
		return nil, err
	}

	// Every accepted observation appends exactly one ledger entry,
	// including the one that created the job.
	entry := &ledger.Insert{
		ID:         uuid.New().String(),
		JobID:      jobID,
		Source:     o.Source,
		ObservedAt: observedAt,
		CreatedAt:  now,
	}
	if err := e.store.AppendInsert(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, err.Error())
	}

	if e.logger != nil {
		e.logger.Debugw("Observation ingested",
			"company_id", companyID,
			"job_id", jobID,
			"was_new_job", wasNewJob,
			"source", o.Source,
		)
	}

	return &Result{
		CompanyID: companyID,
		JobID:     jobID,
		InsertID:  entry.ID,
		WasNewJob: wasNewJob,
	}, nil
}

// resolveCompany returns the id of the company for companyKey, creating
// it if absent. The store's unique index is the source of truth for
// "already exists"; a read proving absence can be stale by the time the
// insert runs.
func (e *Engine) resolveCompany(ctx context.Context, tx *sql.Tx, o Observation, companyKey string, now time.Time) (string, error) {
	company, err := e.store.GetCompanyByKey(ctx, tx, companyKey)
	if err == nil {
		return company.ID, nil
	}
	if !errors.IsNotFound(err) {
		return "", err
	}

	c := &ledger.Company{
		ID:        uuid.New().String(),
		Name:      o.CompanyName,
		Domain:    fingerprint.NormalizeDomain(o.Domain),
		NameKey:   companyKey,
		CreatedAt: now,
	}
	if err := e.store.InsertCompany(ctx, tx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

// resolveJob returns the id of the job for (companyID, fp), creating it on
// first sight or advancing last_seen on a repeat sighting.
func (e *Engine) resolveJob(ctx context.Context, tx *sql.Tx, o Observation, companyID, fp string, observedAt, now time.Time) (string, bool, error) {
	job, err := e.store.GetJobByFingerprint(ctx, tx, companyID, fp)
	if err == nil {
		if err := e.store.AdvanceJobLastSeen(ctx, tx, job.ID, observedAt); err != nil {
			return "", false, err
		}
		return job.ID, false, nil
	}
	if !errors.IsNotFound(err) {
		return "", false, err
	}

	j := &ledger.Job{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Title:       o.Title,
		Location:    o.Location,
		ExternalRef: o.ExternalRef,
		Fingerprint: fp,
		FirstSeen:   observedAt,
		LastSeen:    observedAt,
		CreatedAt:   now,
	}
	if err := e.store.InsertJob(ctx, tx, j); err != nil {
		return "", false, err
	}
	return j.ID, true, nil
}
