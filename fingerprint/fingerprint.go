// Package fingerprint derives deterministic identity keys from raw
// job-posting observations.
//
// The same logical company or posting must always normalize to the same
// key, across repeated scraper runs and across the legacy and live data
// formats. That determinism is what makes deduplication and migration
// idempotent. Resolution is pure: no I/O, no clock, no state.
package fingerprint

import (
	"strings"
	"unicode"
)

// Observation is one reported sighting of a job posting as handed to the
// resolver. Fields mirror the ingestion API: company name is required,
// everything else is best-effort scraper output.
type Observation struct {
	CompanyName string
	Domain      string
	Title       string
	Location    string
	ExternalRef string
}

// Keys is the resolved identity pair for an observation.
type Keys struct {
	// CompanyKey identifies the company: normalized name, plus the
	// normalized domain when the observation carries one.
	CompanyKey string

	// JobFingerprint identifies the posting within its company:
	// normalized title and location plus the source's external id.
	JobFingerprint string
}

// fieldSep joins fingerprint components. A control character cannot
// appear in normalized text, so components can never bleed into each other.
const fieldSep = "\x1f"

// Resolve maps an observation to its identity keys.
func Resolve(o Observation) Keys {
	companyKey := NormalizeName(o.CompanyName)
	if domain := NormalizeDomain(o.Domain); domain != "" {
		companyKey += fieldSep + domain
	}

	parts := []string{
		NormalizeName(o.Title),
		NormalizeName(o.Location),
		strings.TrimSpace(o.ExternalRef),
	}

	return Keys{
		CompanyKey:     companyKey,
		JobFingerprint: strings.Join(parts, fieldSep),
	}
}

// NormalizeName lower-cases, trims, collapses internal whitespace, and
// strips punctuation. "Acme  Inc." and "acme inc" produce the same key.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsPunct(r):
			// Dropping rather than replacing keeps "B.Braun" == "BBraun"
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeDomain strips the scheme, a leading "www.", any path, and
// lower-cases what remains. "https://www.Acme.com/careers" -> "acme.com".
func NormalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "www.")

	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}

	return strings.TrimSuffix(s, ".")
}
