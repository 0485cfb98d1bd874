package api

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/calderasoft/patternrag/internal/agent"
	"github.com/calderasoft/patternrag/internal/common"
	"github.com/calderasoft/patternrag/internal/data/orchestrator"
	"github.com/calderasoft/patternrag/internal/llm"
	"github.com/calderasoft/patternrag/internal/retriever"
)

// Server exposes retrieval, generation, and admin endpoints over HTTP.
type Server struct {
	orch   *orchestrator.Orchestrator
	retr   *retriever.Retriever
	runner *agent.Runner
	router chi.Router
}

// NewServer wires the router. The runner may be nil, in which case
// /v1/generate reports 503.
func NewServer(orch *orchestrator.Orchestrator, retr *retriever.Retriever, runner *agent.Runner) *Server {
	s := &Server{orch: orch, retr: retr, runner: runner}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/generate", s.handleGenerate)
		r.Post("/reindex", s.handleReindex)
		r.Get("/patterns", s.handlePatterns)
		r.Get("/stats", s.handleStats)
		r.Get("/logs", s.handleLogs)
	})
	r.Handle("/debug/vars", expvar.Handler())
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	if s.orch.Ref().Load() == nil {
		status = "index_pending"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		common.Logger().Info("api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", ww.Header().Get("X-Request-ID"))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			common.Logger().Warn("api: encode response failed", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps known sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retriever.ErrRetrievalUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, llm.ErrEmbeddingUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, orchestrator.ErrRebuildInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
