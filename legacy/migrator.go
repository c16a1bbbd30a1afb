package legacy

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/postwatch/postwatch/errors"
	"github.com/postwatch/postwatch/ingest"
	"github.com/postwatch/postwatch/ledger"
)

const (
	// DefaultSourceName keys the persisted checkpoint in migration_state.
	DefaultSourceName = "legacy-mysql"

	defaultBatchSize = 200

	// Per-record retry budget against a transiently unavailable store.
	maxStoreRetries   = 3
	initialRetryDelay = 100 * time.Millisecond
)

// MigratorConfig tunes a replay run. Zero values pick defaults.
type MigratorConfig struct {
	// BatchSize is how many records are read and processed between
	// checkpoint writes.
	BatchSize int

	// RatePerSec throttles ingestion against the live store; 0 disables
	// throttling.
	RatePerSec float64

	// SourceName keys the checkpoint row.
	SourceName string
}

// Summary reports one replay run.
type Summary struct {
	// Processed counts every record read from the source.
	Processed int
	// Created counts records that minted a new job row.
	Created int
	// Skipped counts malformed records stepped over.
	Skipped int
	// Failed counts records abandoned after retries.
	Failed int
	// NextCheckpoint is the position a later run resumes from.
	NextCheckpoint string
}

// Migrator replays a legacy source through the ingestion engine.
//
// Replay is idempotent for companies and jobs but each replayed record
// appends an insert row, so re-running from an old checkpoint duplicates
// timeline entries for the overlap. The persisted checkpoint exists to make
// that re-run unnecessary.
type Migrator struct {
	source     Source
	engine     *ingest.Engine
	store      *ledger.Store
	logger     *zap.SugaredLogger
	limiter    *rate.Limiter
	batchSize  int
	sourceName string
}

// NewMigrator creates a migrator. logger may be nil.
func NewMigrator(source Source, engine *ingest.Engine, store *ledger.Store, cfg MigratorConfig, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	sourceName := cfg.SourceName
	if sourceName == "" {
		sourceName = DefaultSourceName
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return &Migrator{
		source:     source,
		engine:     engine,
		store:      store,
		logger:     logger,
		limiter:    limiter,
		batchSize:  batchSize,
		sourceName: sourceName,
	}
}

// Run replays the source from checkpoint until it is exhausted or ctx is
// canceled. The checkpoint is persisted after every batch, so a canceled run
// loses at most one batch of progress.
func (m *Migrator) Run(ctx context.Context, checkpoint string) (*Summary, error) {
	summary := &Summary{NextCheckpoint: checkpoint}

	for {
		records, next, err := m.source.Next(ctx, summary.NextCheckpoint, m.batchSize)
		if err != nil {
			return summary, errors.Wrap(err, "reading legacy source")
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if m.limiter != nil {
				if err := m.limiter.Wait(ctx); err != nil {
					return summary, err
				}
			}
			m.replayRecord(ctx, rec, summary)
		}
		summary.NextCheckpoint = next

		if err := m.store.SetCheckpoint(ctx, m.sourceName, next); err != nil {
			return summary, errors.Wrap(err, "persisting checkpoint")
		}
		m.logger.Infow("Batch replayed",
			"processed", summary.Processed,
			"created", summary.Created,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"checkpoint", next)

		if err := ctx.Err(); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// replayRecord ingests one record, retrying transient store failures.
// Malformed records are skipped; records that exhaust their retries are
// counted as failed. Either way the run moves on, so one bad record cannot
// wedge the replay.
func (m *Migrator) replayRecord(ctx context.Context, rec Record, summary *Summary) {
	summary.Processed++

	if rec.ObservedAt.IsZero() {
		summary.Skipped++
		m.logger.Warnw("Skipping legacy record with no usable date",
			"table", rec.Prefix, "cursor", rec.Cursor)
		return
	}

	obs := ingest.Observation{
		CompanyName: rec.CompanyName,
		Title:       rec.Title,
		Location:    rec.Location,
		ExternalRef: rec.ExternalRef,
		ObservedAt:  rec.ObservedAt,
		Source:      "legacy:" + rec.Prefix,
	}

	delay := initialRetryDelay
	var lastErr error
	for attempt := 0; attempt < maxStoreRetries; attempt++ {
		result, err := m.engine.Ingest(ctx, obs)
		if err == nil {
			if result.WasNewJob {
				summary.Created++
			}
			return
		}
		if errors.IsValidation(err) {
			summary.Skipped++
			m.logger.Warnw("Skipping malformed legacy record",
				"table", rec.Prefix, "cursor", rec.Cursor, "error", err)
			return
		}

		lastErr = err
		if attempt < maxStoreRetries-1 {
			m.logger.Debugw("Retrying legacy record",
				"table", rec.Prefix, "cursor", rec.Cursor,
				"attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				summary.Failed++
				return
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	summary.Failed++
	m.logger.Errorw("Abandoning legacy record after retries",
		"table", rec.Prefix, "cursor", rec.Cursor, "error", lastErr)
}
