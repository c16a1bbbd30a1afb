package gateway

import (
	"context"
	"net/http"

	"github.com/postwatch/postwatch/ledger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// keyContextKey is the context key for the authenticated API key record.
const keyContextKey contextKey = "gateway_api_key"

// keyFromContext returns the API key a request authenticated with.
func keyFromContext(ctx context.Context) (*ledger.APIKey, bool) {
	key, ok := ctx.Value(keyContextKey).(*ledger.APIKey)
	return key, ok
}

// requireRole authenticates the X-API-Key header and checks the resolved
// role against allowed. An unknown or revoked key is a 401; a known key
// whose role lacks the capability is a 403.
func (s *Server) requireRole(allowed func(ledger.Role) bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plaintext := r.Header.Get("X-API-Key")
		if plaintext == "" {
			writeError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		key, err := s.store.GetAPIKeyByHash(r.Context(), ledger.HashAPIKey(plaintext))
		if err != nil {
			s.logger.Debugw("API key rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		if !allowed(key.Role) {
			s.logger.Warnw("API key lacks required capability",
				"key_id", shortID(key.ID), "role", key.Role, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), keyContextKey, key)
		next(w, r.WithContext(ctx))
	}
}

// logRequest wraps a handler with per-request debug logging.
func (s *Server) logRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debugw("Request", "method", r.Method, "path", r.URL.Path)
		next(w, r)
	}
}

// corsMiddleware adds CORS headers using the configured allowed origins.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
