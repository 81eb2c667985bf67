// Package server exposes the analysis service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tuannvm/youtrack-analyzer/internal/cache"
	"github.com/tuannvm/youtrack-analyzer/internal/logging"
	"github.com/tuannvm/youtrack-analyzer/internal/models"
	"github.com/tuannvm/youtrack-analyzer/internal/youtrack"
)

// AnalysisService is the analyzer surface the server depends on.
type AnalysisService interface {
	Analyze(ctx context.Context, description, issueID, projectID string) (*models.AnalysisResponse, error)
}

// ConnectionTester verifies tracker reachability for the health endpoint.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// Server routes HTTP requests to the analyzer and serves health and cache
// statistics endpoints.
type Server struct {
	analyzer AnalysisService
	store    cache.Store
	tracker  ConnectionTester
	httpSrv  *http.Server
}

// handlerFunc is an http.HandlerFunc that may return an error; wrap maps
// the error onto a status code and JSON envelope.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// New builds a Server listening on addr.
func New(addr string, analyzer AnalysisService, store cache.Store, tracker ConnectionTester) *Server {
	s := &Server{
		analyzer: analyzer,
		store:    store,
		tracker:  tracker,
	}

	r := chi.NewRouter()
	r.Post("/analyze", s.wrap(s.handleAnalyze))
	r.Get("/health", s.wrap(s.handleHealth))
	r.Get("/cache/stats", s.wrap(s.handleCacheStats))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	logging.Infof("HTTP server listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// wrap adds a request id, logs timing, and converts returned errors into
// JSON error responses.
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()
		logging.Infof("[%s] %s %s", requestID, r.Method, r.URL.Path)

		err := h(w, r)
		elapsed := time.Since(start)
		if err == nil {
			logging.Infof("[%s] completed in %s", requestID, elapsed)
			return
		}

		status := statusFor(err)
		logging.Warnf("[%s] failed in %s with %d: %v", requestID, elapsed, status, err)
		writeJSONError(w, status, err.Error())
	}
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case youtrack.IsNotFound(err):
		return http.StatusNotFound
	case youtrack.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return nil
	}

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &youtrack.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	resp, err := s.analyzer.Analyze(r.Context(), req.ErrorMessage, req.IssueID, req.ProjectID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

// handleHealth probes the cache with a round trip and checks tracker
// connectivity. Any failing component degrades the status to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{
		"cache":    "ok",
		"youtrack": "ok",
	}
	healthy := true

	if err := probeCache(ctx, s.store); err != nil {
		components["cache"] = err.Error()
		healthy = false
	}
	if err := s.tracker.TestConnection(ctx); err != nil {
		components["youtrack"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	return writeJSON(w, status, map[string]interface{}{
		"status":     overall,
		"components": components,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, stats)
}

// probeCache performs a set/get/delete round trip on a throwaway key.
func probeCache(ctx context.Context, store cache.Store) error {
	key := "health:probe"
	if err := store.Set(ctx, key, "ok", 10*time.Second); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	value, found, err := store.Get(ctx, key)
	if err != nil || !found || value != "ok" {
		return fmt.Errorf("cache read failed: found=%t err=%v", found, err)
	}
	if _, err := store.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
		},
	})
}
