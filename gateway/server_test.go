package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postwatch/postwatch/config"
	"github.com/postwatch/postwatch/db"
	"github.com/postwatch/postwatch/ingest"
	"github.com/postwatch/postwatch/ledger"
)

func setupTestServer(t *testing.T) (*Server, *ledger.Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "gateway.db")
	database, err := db.OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store := ledger.NewStore(database, nil)
	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	return NewServer(store, cfg, nil), store
}

func newKey(t *testing.T, store *ledger.Store, role ledger.Role) string {
	t.Helper()
	_, plaintext, err := store.CreateAPIKey(context.Background(), "test-"+string(role), role)
	require.NoError(t, err)
	return plaintext
}

func doRequest(s *Server, method, path, key string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleObservation() ingest.Observation {
	return ingest.Observation{
		CompanyName: "Acme Inc",
		Title:       "Backend Engineer",
		Location:    "Berlin",
		ObservedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:      "test-scraper",
	}
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRejections(t *testing.T) {
	s, store := setupTestServer(t)

	// No key.
	rec := doRequest(s, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown key.
	rec = doRequest(s, http.MethodGet, "/api/jobs", "pw_deadbeef", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Revoked key.
	record, plaintext, err := store.CreateAPIKey(context.Background(), "revoked", ledger.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, store.RevokeAPIKey(context.Background(), record.ID))
	rec = doRequest(s, http.MethodGet, "/api/jobs", plaintext, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleMatrix(t *testing.T) {
	s, store := setupTestServer(t)

	keys := map[ledger.Role]string{
		ledger.RoleAdmin:          newKey(t, store, ledger.RoleAdmin),
		ledger.RoleScraperWriter:  newKey(t, store, ledger.RoleScraperWriter),
		ledger.RoleFullReader:     newKey(t, store, ledger.RoleFullReader),
		ledger.RoleFrontendReader: newKey(t, store, ledger.RoleFrontendReader),
	}

	// Seed one job so reads hit real rows.
	admin := keys[ledger.RoleAdmin]
	rec := doRequest(s, http.MethodPost, "/api/ingest", admin, sampleObservation())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ingest.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	timelinePath := fmt.Sprintf("/api/jobs/%s/timeline", created.JobID)
	rollbackBody := map[string]string{"cutoff": "2999-01-01T00:00:00Z"}

	tests := []struct {
		name   string
		role   ledger.Role
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"scraper ingests", ledger.RoleScraperWriter, http.MethodPost, "/api/ingest", sampleObservation(), http.StatusOK},
		{"scraper cannot read", ledger.RoleScraperWriter, http.MethodGet, "/api/jobs", nil, http.StatusForbidden},
		{"scraper cannot rollback", ledger.RoleScraperWriter, http.MethodPost, "/api/admin/rollback", rollbackBody, http.StatusForbidden},

		{"full reader reads jobs", ledger.RoleFullReader, http.MethodGet, "/api/jobs", nil, http.StatusOK},
		{"full reader reads timeline", ledger.RoleFullReader, http.MethodGet, timelinePath, nil, http.StatusOK},
		{"full reader cannot ingest", ledger.RoleFullReader, http.MethodPost, "/api/ingest", sampleObservation(), http.StatusForbidden},

		{"frontend reader reads jobs", ledger.RoleFrontendReader, http.MethodGet, "/api/jobs", nil, http.StatusOK},
		{"frontend reader reads companies", ledger.RoleFrontendReader, http.MethodGet, "/api/companies", nil, http.StatusOK},
		{"frontend reader blocked from timeline", ledger.RoleFrontendReader, http.MethodGet, timelinePath, nil, http.StatusForbidden},
		{"frontend reader cannot ingest", ledger.RoleFrontendReader, http.MethodPost, "/api/ingest", sampleObservation(), http.StatusForbidden},
		{"frontend reader cannot rollback", ledger.RoleFrontendReader, http.MethodPost, "/api/admin/rollback", rollbackBody, http.StatusForbidden},

		{"admin reads timeline", ledger.RoleAdmin, http.MethodGet, timelinePath, nil, http.StatusOK},
		{"admin reads stats", ledger.RoleAdmin, http.MethodGet, "/api/stats", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, tt.method, tt.path, keys[tt.role], tt.body)
			assert.Equal(t, tt.want, rec.Code, "body: %s", rec.Body.String())
		})
	}
}

func TestIngestEndpoint(t *testing.T) {
	s, store := setupTestServer(t)
	key := newKey(t, store, ledger.RoleScraperWriter)

	// First sighting creates the job.
	rec := doRequest(s, http.MethodPost, "/api/ingest", key, sampleObservation())
	require.Equal(t, http.StatusCreated, rec.Code)
	var first ingest.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.True(t, first.WasNewJob)

	// Repeat sighting resolves to the same entities.
	rec = doRequest(s, http.MethodPost, "/api/ingest", key, sampleObservation())
	require.Equal(t, http.StatusOK, rec.Code)
	var second ingest.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, first.JobID, second.JobID)
	assert.False(t, second.WasNewJob)
}

func TestIngestValidation(t *testing.T) {
	s, store := setupTestServer(t)
	key := newKey(t, store, ledger.RoleScraperWriter)

	obs := sampleObservation()
	obs.Title = ""
	rec := doRequest(s, http.MethodPost, "/api/ingest", key, obs)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/ingest", key, "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobAndTimeline(t *testing.T) {
	s, store := setupTestServer(t)
	writer := newKey(t, store, ledger.RoleScraperWriter)
	reader := newKey(t, store, ledger.RoleFullReader)

	rec := doRequest(s, http.MethodPost, "/api/ingest", writer, sampleObservation())
	require.Equal(t, http.StatusCreated, rec.Code)
	var result ingest.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))

	rec = doRequest(s, http.MethodGet, "/api/jobs/"+result.JobID, reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job ledger.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, "Backend Engineer", job.Title)

	rec = doRequest(s, http.MethodGet, "/api/jobs/"+result.JobID+"/timeline", reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var timeline struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&timeline))
	assert.Equal(t, 1, timeline.Count)

	rec = doRequest(s, http.MethodGet, "/api/jobs/no-such-id", reader, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/jobs/no-such-id/timeline", reader, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRollbackEndpoint(t *testing.T) {
	s, store := setupTestServer(t)
	admin := newKey(t, store, ledger.RoleAdmin)

	rec := doRequest(s, http.MethodPost, "/api/ingest", admin, sampleObservation())
	require.Equal(t, http.StatusCreated, rec.Code)

	// Missing cutoff is rejected before anything is deleted.
	rec = doRequest(s, http.MethodPost, "/api/admin/rollback", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/admin/rollback", admin,
		map[string]string{"cutoff": "2000-01-01T00:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result ledger.RollbackResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.EqualValues(t, 1, result.DeletedInserts)
	assert.EqualValues(t, 1, result.DeletedJobs)
	assert.EqualValues(t, 1, result.DeletedCompanies)

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Jobs)
}

func TestCORSHeaders(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
