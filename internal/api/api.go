package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"trk/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store   store.Store
	version string
}

// NewServer creates a new API server over the given store.
func NewServer(s store.Store, version string) *Server {
	return &Server{store: s, version: version}
}

// Router returns an http.Handler for the API routes. Both /issues and
// /issues/ are routed so clients need not care about the trailing slash.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /issues", s.createIssue)
	mux.HandleFunc("POST /issues/{$}", s.createIssue)
	mux.HandleFunc("GET /issues", s.listIssues)
	mux.HandleFunc("GET /issues/{$}", s.listIssues)
	mux.HandleFunc("GET /issues/{id}", s.getIssue)
	mux.HandleFunc("PUT /issues/{id}", s.updateIssue)
	mux.HandleFunc("PATCH /issues/{id}", s.partialUpdateIssue)
	mux.HandleFunc("DELETE /issues/{id}", s.deleteIssue)

	mux.HandleFunc("GET /{$}", s.root)
	mux.HandleFunc("GET /health", s.health)

	return corsMiddleware(logMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logMiddleware tags each request with a ULID and logs method, path,
// status, and duration via slog.
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		slog.Info("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeValidationError renders a 422 with per-field detail.
func writeValidationError(w http.ResponseWriter, ve *ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation failed",
		"fields": ve.Fields,
	})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "trk",
		"version": s.version,
		"endpoints": map[string]string{
			"create_issue":   "POST /issues/",
			"list_issues":    "GET /issues/",
			"get_issue":      "GET /issues/{id}",
			"update_issue":   "PUT /issues/{id}",
			"partial_update": "PATCH /issues/{id}",
			"delete_issue":   "DELETE /issues/{id}",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
