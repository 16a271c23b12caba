// Package api exposes the checks over HTTP as JSON endpoints.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"datacheck/domain/core"
	"datacheck/internal/config"
	"datacheck/internal/errors"
	"datacheck/ports"
)

// Server wires the check handlers onto a chi router
type Server struct {
	router *chi.Mux
	checks *CheckHandler
}

// NewServer creates the HTTP server. repo may be nil, in which case the
// result endpoints are not registered.
func NewServer(cfg *config.Config, repo ports.CheckResultRepository) *Server {
	s := &Server{
		router: chi.NewRouter(),
		checks: NewCheckHandler(cfg.Checks, repo),
	}
	s.setupMiddleware()
	s.setupRoutes(repo != nil)
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes(withResults bool) {
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/api/checks/property-outliers", s.checks.RunPropertyOutliers)
	if withResults {
		s.router.Get("/api/results", s.checks.ListResults)
		s.router.Get("/api/results/{id}", s.checks.GetResult)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Router returns the underlying handler for serving
func (s *Server) Router() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

// writeError maps domain and application errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := errors.GetCode(err)

	switch {
	case core.IsValidationError(err) || core.IsProcessError(err):
		status = http.StatusUnprocessableEntity
		code = errors.CodeValidationError
	case code == errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case code == errors.CodeNotFound:
		status = http.StatusNotFound
	case code == errors.CodeDatabaseError:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, map[string]string{"error": err.Error(), "code": code})
}
