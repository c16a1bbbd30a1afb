package gateway

import (
	"net/http"
	"time"

	"github.com/postwatch/postwatch/ingest"
	"github.com/postwatch/postwatch/version"
)

// handleIngest accepts one observation and returns the resolved entity ids.
// Created is 201 only when the observation minted a new job row; a repeat
// sighting is 200.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var obs ingest.Observation
	if err := readJSON(w, r, &obs); err != nil {
		return
	}

	result, err := s.engine.Ingest(r.Context(), obs)
	if err != nil {
		s.logger.Warnw("Ingest rejected", "company", obs.CompanyName, "error", err)
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if result.WasNewJob {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context(), r.URL.Query().Get("company_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobTimeline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	timeline, err := s.store.JobTimeline(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":   id,
		"timeline": timeline,
		"count":    len(timeline),
	})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"companies": companies, "count": len(companies)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// rollbackRequest asks for deletion of everything ingested at or after
// Cutoff. The window is cut on ingestion time, not observation time, so an
// unwanted migration run of historical records can be undone.
type rollbackRequest struct {
	Cutoff time.Time `json:"cutoff"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.Cutoff.IsZero() {
		writeError(w, http.StatusBadRequest, "cutoff is required")
		return
	}

	key, _ := keyFromContext(r.Context())
	result, err := s.store.Rollback(r.Context(), req.Cutoff)
	if err != nil {
		s.logger.Errorw("Rollback failed", "cutoff", req.Cutoff, "error", err)
		writeDomainError(w, err)
		return
	}

	if key != nil {
		s.logger.Infow("Rollback executed",
			"cutoff", req.Cutoff,
			"key_id", shortID(key.ID),
			"deleted_inserts", result.DeletedInserts,
			"deleted_jobs", result.DeletedJobs,
			"deleted_companies", result.DeletedCompanies)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}
