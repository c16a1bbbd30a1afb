package legacy

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postwatch/postwatch/db"
	"github.com/postwatch/postwatch/ingest"
	"github.com/postwatch/postwatch/ledger"
)

// memSource serves a fixed record slice, resuming strictly after the
// checkpoint cursor.
type memSource struct {
	records []Record
	calls   int
	err     error
}

func (s *memSource) Next(ctx context.Context, checkpoint string, limit int) ([]Record, string, error) {
	s.calls++
	if s.err != nil {
		return nil, "", s.err
	}

	start := 0
	if checkpoint != "" {
		for i, rec := range s.records {
			if rec.Cursor == checkpoint {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	batch := s.records[start:end]
	next := checkpoint
	if len(batch) > 0 {
		next = batch[len(batch)-1].Cursor
	}
	return batch, next, nil
}

func setupMigratorTest(t *testing.T, source Source, cfg MigratorConfig) (*Migrator, *ledger.Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "migrate.db")
	database, err := db.OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store := ledger.NewStore(database, nil)
	engine := ingest.NewEngine(store, nil)
	return NewMigrator(source, engine, store, cfg, nil), store
}

func legacyRecord(cursor, company, title string, observedAt time.Time) Record {
	return Record{
		Prefix:      "kls",
		CompanyName: company,
		Title:       title,
		Location:    "Tuttlingen",
		ObservedAt:  observedAt,
		Cursor:      cursor,
	}
}

func TestMigratorReplaysAll(t *testing.T) {
	base := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	source := &memSource{records: []Record{
		legacyRecord("c1", "KLS", "Engineer", base),
		legacyRecord("c2", "KLS", "Engineer", base.Add(24*time.Hour)),
		legacyRecord("c3", "KLS", "Technician", base),
		legacyRecord("c4", "KarlStorz", "Engineer", base),
	}}

	migrator, store := setupMigratorTest(t, source, MigratorConfig{BatchSize: 2})
	summary, err := migrator.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 3, summary.Created, "repeat sighting of the same posting is not a new job")
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, "c4", summary.NextCheckpoint)

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Companies)
	assert.EqualValues(t, 3, stats.Jobs)
	assert.EqualValues(t, 4, stats.Inserts)

	// The checkpoint survives the run.
	saved, err := store.GetCheckpoint(context.Background(), DefaultSourceName)
	require.NoError(t, err)
	assert.Equal(t, "c4", saved)
}

func TestMigratorResume(t *testing.T) {
	base := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		legacyRecord("c1", "KLS", "Engineer", base),
		legacyRecord("c2", "KLS", "Technician", base),
		legacyRecord("c3", "KLS", "Designer", base),
		legacyRecord("c4", "KLS", "Machinist", base),
	}

	// First run sees only the first half, as if interrupted after it.
	firstHalf := &memSource{records: records[:2]}
	migrator, store := setupMigratorTest(t, firstHalf, MigratorConfig{})
	first, err := migrator.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Processed)

	// Second run resumes over the full source from the saved checkpoint.
	checkpoint, err := store.GetCheckpoint(context.Background(), DefaultSourceName)
	require.NoError(t, err)
	require.Equal(t, first.NextCheckpoint, checkpoint)

	full := &memSource{records: records}
	engine := ingest.NewEngine(store, nil)
	resumed := NewMigrator(full, engine, store, MigratorConfig{}, nil)
	second, err := resumed.Run(context.Background(), checkpoint)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Processed, "resume must not re-read processed records")

	// Combined result matches one uninterrupted run.
	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Companies)
	assert.EqualValues(t, 4, stats.Jobs)
	assert.EqualValues(t, 4, stats.Inserts)
}

func TestMigratorRunTwiceProcessesNothing(t *testing.T) {
	base := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	source := &memSource{records: []Record{
		legacyRecord("c1", "KLS", "Engineer", base),
	}}

	migrator, store := setupMigratorTest(t, source, MigratorConfig{})
	_, err := migrator.Run(context.Background(), "")
	require.NoError(t, err)

	checkpoint, err := store.GetCheckpoint(context.Background(), DefaultSourceName)
	require.NoError(t, err)

	second, err := migrator.Run(context.Background(), checkpoint)
	require.NoError(t, err)
	assert.Zero(t, second.Processed)
}

func TestMigratorSkipsMalformed(t *testing.T) {
	base := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	noDate := legacyRecord("c1", "KLS", "Engineer", time.Time{})
	noTitle := legacyRecord("c2", "KLS", "", base)
	good := legacyRecord("c3", "KLS", "Technician", base)
	source := &memSource{records: []Record{noDate, noTitle, good}}

	migrator, store := setupMigratorTest(t, source, MigratorConfig{})
	summary, err := migrator.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Created)
	assert.Zero(t, summary.Failed)
	// Bad records do not hold the checkpoint back.
	assert.Equal(t, "c3", summary.NextCheckpoint)

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Jobs)
}

func TestMigratorSourceError(t *testing.T) {
	source := &memSource{err: assert.AnError}
	migrator, _ := setupMigratorTest(t, source, MigratorConfig{})

	_, err := migrator.Run(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestParseLegacyDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2021-06-01", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"2021/06/01", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"01.06.2021", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"01/06/2021", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"2021-06-01 14:30:00", time.Date(2021, 6, 1, 14, 30, 0, 0, time.UTC), true},
		{"2021/06/01 14:30:00", time.Date(2021, 6, 1, 14, 30, 0, 0, time.UTC), true},
		{"  2021-06-01  ", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"06-2021", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLegacyDate(tt.input)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}
