package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/calderasoft/patternrag/internal/common"
)

type reindexRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	stats, err := s.orch.Rebuild(r.Context(), req.Force)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pattern_count": stats.PatternCount,
		"chunk_count":   stats.ChunkCount,
		"duration_ms":   stats.BuildDuration.Milliseconds(),
		"skipped":       stats.Skipped,
	})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	rows, err := s.orch.Patterns(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patterns": rows})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	history, err := s.orch.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	chunks := 0
	if idx := s.orch.Ref().Load(); idx != nil {
		chunks = idx.Len()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"indexed_chunks": chunks,
		"rebuilds":       history,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
}
