package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/calderasoft/patternrag/internal/agent"
	"github.com/calderasoft/patternrag/internal/pattern"
	"github.com/calderasoft/patternrag/internal/retriever"
)

type retrieveRequest struct {
	Query      string                   `json:"query"`
	DataFields []string                 `json:"data_fields"`
	K          int                      `json:"k"`
	Analysis   *retriever.QueryAnalysis `json:"analysis,omitempty"`
}

type retrieveResponse struct {
	Candidates []retriever.CandidateResult `json:"candidates"`
	Top        *topPattern                 `json:"top,omitempty"`
}

type topPattern struct {
	PatternID    string                   `json:"pattern_id"`
	Name         string                   `json:"name"`
	Structure    json.RawMessage          `json:"structure,omitempty"`
	Requirements pattern.DataRequirements `json:"data_requirements"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	analysis := req.Analysis
	if analysis == nil {
		analysis = agent.NewAnalyzer().Analyze(req.Query)
	}
	candidates, err := s.retr.Retrieve(r.Context(), req.Query, analysis, req.DataFields, req.K)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := retrieveResponse{Candidates: candidates}
	if len(candidates) > 0 && candidates[0].Pattern != nil {
		p := candidates[0].Pattern
		resp.Top = &topPattern{
			PatternID:    p.PatternID,
			Name:         p.Name,
			Structure:    p.Structure,
			Requirements: p.Requirements,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type generateRequest struct {
	Query      string          `json:"query"`
	DataFields []string        `json:"data_fields"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "generation pipeline disabled")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	result, err := s.runner.Run(r.Context(), req.Query, req.DataFields, req.Data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
