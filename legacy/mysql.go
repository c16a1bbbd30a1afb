package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Legacy archive driver.
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/postwatch/postwatch/errors"
)

// legacyTable describes one company's table pair in the archive. The scraper
// generation that produced the archive used slightly different column sets
// per company, so each prefix carries its own column names.
type legacyTable struct {
	prefix      string
	company     string
	titleCol    string
	locationCol string
	refCol      string
}

// Archive table pairs in replay order. Companies whose scrapers were retired
// before the archive stabilized have no surviving tables and are omitted.
var defaultTables = []legacyTable{
	{prefix: "kls", company: "KLS", titleCol: "Title", locationCol: "WorkLocation", refCol: "JobID"},
	{prefix: "ks", company: "KarlStorz", titleCol: "Title", locationCol: "WorkLocation", refCol: "JobID"},
}

// hiddenCompanies were delisted from the portal before the archive was
// frozen; their records are not replayed.
var hiddenCompanies = map[string]bool{
	"Europapark": true,
	"KarlsStorz": true,
	"Schwer":     true,
}

// MySQLSource reads the legacy archive. Each company prefix has a
// jobs_<prefix>_listings table and a jobs_<prefix>_dates table recording one
// row per sighting; listings that were scraped before sighting tracking
// existed have no date rows and fall back to their DateAdded column.
type MySQLSource struct {
	db     *sql.DB
	tables []legacyTable
	logger *zap.SugaredLogger
}

// OpenMySQLSource connects to the legacy archive at dsn.
func OpenMySQLSource(dsn string, logger *zap.SugaredLogger) (*MySQLSource, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening legacy archive")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging legacy archive")
	}
	return &MySQLSource{db: db, tables: visibleTables(defaultTables), logger: logger}, nil
}

// NewMySQLSource wraps an existing connection, for tests.
func NewMySQLSource(db *sql.DB, logger *zap.SugaredLogger) *MySQLSource {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MySQLSource{db: db, tables: visibleTables(defaultTables), logger: logger}
}

func visibleTables(tables []legacyTable) []legacyTable {
	kept := make([]legacyTable, 0, len(tables))
	for _, t := range tables {
		if hiddenCompanies[t.company] {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Close releases the archive connection.
func (s *MySQLSource) Close() error {
	return s.db.Close()
}

// Replay order within a table is (listing id, raw scrape date). The raw date
// string orders identically to the parsed date for the formats the archive
// uses within a single table, and keeping it raw makes the cursor exact.
const listingsQuery = `
	SELECT l.id, l.%s, l.%s, l.%s,
	       COALESCE(d.ScrapeDate, ''), COALESCE(l.DateAdded, '')
	FROM jobs_%s_listings l
	LEFT JOIN jobs_%s_dates d ON d.job_id = l.id
	WHERE l.id > ? OR (l.id = ? AND COALESCE(d.ScrapeDate, '') > ?)
	ORDER BY l.id, COALESCE(d.ScrapeDate, '')
	LIMIT ?`

// Next implements Source. The checkpoint encodes the table prefix, listing
// id, and raw scrape date of the last processed record.
func (s *MySQLSource) Next(ctx context.Context, checkpoint string, limit int) ([]Record, string, error) {
	prefix, lastID, lastDate, err := decodeCursor(checkpoint)
	if err != nil {
		return nil, "", err
	}

	start := 0
	if prefix != "" {
		start = -1
		for i, t := range s.tables {
			if t.prefix == prefix {
				start = i
				break
			}
		}
		if start < 0 {
			return nil, "", errors.Newf("checkpoint references unknown table prefix %q", prefix)
		}
	}

	records := make([]Record, 0, limit)
	next := checkpoint

	for i := start; i < len(s.tables) && len(records) < limit; i++ {
		table := s.tables[i]
		if i > start {
			// Fresh table, start from the beginning.
			lastID, lastDate = 0, ""
		}

		batch, err := s.scanTable(ctx, table, lastID, lastDate, limit-len(records))
		if err != nil {
			return nil, "", err
		}
		if len(batch) > 0 {
			records = append(records, batch...)
			next = batch[len(batch)-1].Cursor
		}
	}

	return records, next, nil
}

func (s *MySQLSource) scanTable(ctx context.Context, table legacyTable, lastID int64, lastDate string, limit int) ([]Record, error) {
	query := fmt.Sprintf(listingsQuery,
		table.titleCol, table.locationCol, table.refCol, table.prefix, table.prefix)

	rows, err := s.db.QueryContext(ctx, query, lastID, lastID, lastDate, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "reading legacy table %s", table.prefix)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			id                       int64
			title, location, ref     sql.NullString
			scrapeDateRaw, dateAdded string
		)
		if err := rows.Scan(&id, &title, &location, &ref, &scrapeDateRaw, &dateAdded); err != nil {
			return nil, errors.Wrapf(err, "scanning legacy table %s", table.prefix)
		}

		rec := Record{
			Prefix:      table.prefix,
			CompanyName: table.company,
			Title:       strings.TrimSpace(title.String),
			Location:    strings.TrimSpace(location.String),
			ExternalRef: strings.TrimSpace(ref.String),
			Cursor:      encodeCursor(table.prefix, id, scrapeDateRaw),
		}

		// Sighting date, falling back to the listing's DateAdded for
		// records predating sighting tracking. Unparseable rows still
		// carry their cursor so the migrator can step past them.
		dateRaw := scrapeDateRaw
		if strings.TrimSpace(dateRaw) == "" {
			dateRaw = dateAdded
		}
		if observedAt, err := ParseLegacyDate(dateRaw); err == nil {
			rec.ObservedAt = observedAt
		} else {
			s.logger.Debugw("Legacy record has no usable date",
				"table", table.prefix, "id", id, "raw", dateRaw)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating legacy table %s", table.prefix)
	}
	return records, nil
}

func encodeCursor(prefix string, id int64, scrapeDate string) string {
	return prefix + "|" + strconv.FormatInt(id, 10) + "|" + scrapeDate
}

func decodeCursor(cursor string) (prefix string, id int64, scrapeDate string, err error) {
	if cursor == "" {
		return "", 0, "", nil
	}
	parts := strings.SplitN(cursor, "|", 3)
	if len(parts) != 3 {
		return "", 0, "", errors.Newf("malformed checkpoint %q", cursor)
	}
	id, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, "", errors.Wrapf(err, "malformed checkpoint %q", cursor)
	}
	return parts[0], id, parts[2], nil
}
