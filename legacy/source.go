// Package legacy replays a historical MySQL scrape archive into the
// observation ledger. The replay is checkpointed so an interrupted run can
// resume without re-reading records it already processed.
package legacy

import (
	"context"
	"strings"
	"time"

	"github.com/postwatch/postwatch/errors"
)

// Record is one legacy observation in replay order.
type Record struct {
	// Prefix identifies the legacy table pair the record came from.
	Prefix      string
	CompanyName string
	Title       string
	Location    string
	ExternalRef string
	ObservedAt  time.Time

	// Cursor is an opaque position marker; replay resumes strictly after it.
	Cursor string
}

// Source yields legacy records in a stable order.
//
// Next returns up to limit records positioned strictly after checkpoint,
// together with the checkpoint to persist once those records are processed.
// An empty batch signals that the source is exhausted.
type Source interface {
	Next(ctx context.Context, checkpoint string, limit int) ([]Record, string, error)
}

// The archive accumulated scrape dates in several formats over its lifetime.
var legacyDateFormats = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
}

// ParseLegacyDate parses a scrape date from the archive's known formats.
func ParseLegacyDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.Newf("empty legacy date")
	}
	for _, format := range legacyDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized legacy date %q", s)
}
