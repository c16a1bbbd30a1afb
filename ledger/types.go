// Package ledger persists the posting ledger: companies, jobs, and the
// append-only log of observation events backing lifetime analytics.
//
// All uniqueness is enforced by store-level constraints, never by
// application-side reads: concurrent writers racing on the same company
// or job key are arbitrated by the unique indexes in db/sqlite/migrations.
package ledger

import "time"

// Company is an employer observed by at least one scraper.
// At most one Company exists per identity key.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	NameKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Job is a posting, unique per (company, fingerprint).
//
// FirstSeen and LastSeen carry observation time (when a scraper saw the
// posting); CreatedAt carries ingestion time (when the row was written).
// Rollback windows are defined over CreatedAt.
type Job struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	Title       string    `json:"title"`
	Location    string    `json:"location,omitempty"`
	ExternalRef string    `json:"external_ref,omitempty"`
	Fingerprint string    `json:"-"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
}

// Insert is one ledger entry: a single accepted observation of a job.
// Rows are append-only and never mutated.
type Insert struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	Source     string    `json:"source,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// RollbackResult reports what a rollback removed.
type RollbackResult struct {
	DeletedInserts   int64 `json:"deleted_inserts"`
	DeletedJobs      int64 `json:"deleted_jobs"`
	DeletedCompanies int64 `json:"deleted_companies"`
}

// Stats summarizes ledger contents for operators.
type Stats struct {
	Companies        int64      `json:"companies"`
	Jobs             int64      `json:"jobs"`
	Inserts          int64      `json:"inserts"`
	FirstObservation *time.Time `json:"first_observation,omitempty"`
	LastObservation  *time.Time `json:"last_observation,omitempty"`
}

// Role classifies an API key's permissions at the gateway.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleScraperWriter  Role = "scraper-writer"
	RoleFullReader     Role = "full-reader"
	RoleFrontendReader Role = "frontend-reader"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleScraperWriter, RoleFullReader, RoleFrontendReader:
		return true
	}
	return false
}

// CanIngest reports whether the role may submit observations.
func (r Role) CanIngest() bool {
	return r == RoleAdmin || r == RoleScraperWriter
}

// CanRead reports whether the role may read aggregated job/company views.
func (r Role) CanRead() bool {
	return r == RoleAdmin || r == RoleFullReader || r == RoleFrontendReader
}

// CanReadHistory reports whether the role may read full observation
// timelines. The frontend reader only sees aggregated views.
func (r Role) CanReadHistory() bool {
	return r == RoleAdmin || r == RoleFullReader
}

// CanAdminister reports whether the role may trigger migration and rollback.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// APIKey is a gateway credential. Only the SHA-256 hash of the plaintext
// key is stored.
type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyHash   string     `json:"-"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}
