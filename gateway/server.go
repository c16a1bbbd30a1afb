// Package gateway exposes the observation ledger over HTTP. Scrapers submit
// observations, readers query aggregated views, and admins trigger
// retention rollbacks, each gated by API-key role.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/postwatch/postwatch/config"
	"github.com/postwatch/postwatch/errors"
	"github.com/postwatch/postwatch/ingest"
	"github.com/postwatch/postwatch/ledger"
)

// Server is the ingestion gateway.
type Server struct {
	store  *ledger.Store
	engine *ingest.Engine
	logger *zap.SugaredLogger

	allowedOrigins []string
	shutdownGrace  time.Duration

	httpServer *http.Server
	mux        *http.ServeMux
	handler    http.Handler
}

// NewServer creates a gateway over store. logger may be nil.
func NewServer(store *ledger.Store, cfg *config.Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	grace := time.Duration(cfg.Server.ShutdownGraceSeconds) * time.Second
	if grace <= 0 {
		grace = 10 * time.Second
	}

	s := &Server{
		store:          store,
		engine:         ingest.NewEngine(store, logger),
		logger:         logger,
		allowedOrigins: cfg.Server.AllowedOrigins,
		shutdownGrace:  grace,
		mux:            http.NewServeMux(),
	}
	s.setupRoutes()
	// CORS wraps the whole mux so preflight requests get headers even on
	// method-gated routes.
	s.handler = s.corsMiddleware(s.mux.ServeHTTP)
	return s
}

// setupRoutes configures all HTTP handlers
func (s *Server) setupRoutes() {
	handle := func(pattern string, allowed func(ledger.Role) bool, h http.HandlerFunc) {
		s.mux.HandleFunc(pattern, s.logRequest(s.requireRole(allowed, h)))
	}

	handle("POST /api/ingest", ledger.Role.CanIngest, s.handleIngest)
	handle("GET /api/jobs", ledger.Role.CanRead, s.handleListJobs)
	handle("GET /api/jobs/{id}", ledger.Role.CanRead, s.handleGetJob)
	handle("GET /api/jobs/{id}/timeline", ledger.Role.CanReadHistory, s.handleJobTimeline)
	handle("GET /api/companies", ledger.Role.CanRead, s.handleListCompanies)
	handle("GET /api/stats", ledger.Role.CanRead, s.handleStats)
	handle("POST /api/admin/rollback", ledger.Role.CanAdminister, s.handleRollback)

	// Liveness probe, no auth.
	s.mux.HandleFunc("GET /api/healthz", s.handleHealth)
}

// Handler returns the gateway's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is canceled, then drains in-flight requests for
// the configured grace period.
func (s *Server) Start(ctx context.Context, port int) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Gateway listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "gateway listener")
	case <-ctx.Done():
	}

	s.logger.Infow("Gateway draining", "grace", s.shutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "gateway shutdown")
	}
	return nil
}
