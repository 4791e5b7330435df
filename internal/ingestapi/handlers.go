package ingestapi

import (
	"encoding/json"
	"net/http"

	"brag/internal/ingestkernel/ingesterr"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, ingesterr.StatusFromError(err), ingesterr.AsResponse(err))
}

type enqueueFileRequest struct {
	Path       string   `json:"path"`
	Paths      []string `json:"paths"`
	SourceName string   `json:"source_name"`
}

func (s *Server) handleEnqueueFile(w http.ResponseWriter, r *http.Request) {
	var req enqueueFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ingesterr.BadRequest("invalid request body: %v", err))
		return
	}
	paths := req.Paths
	if req.Path != "" {
		paths = append(paths, req.Path)
	}
	if len(paths) == 0 {
		respondError(w, ingesterr.BadRequest("path is required"))
		return
	}

	n, err := s.coord.EnqueueFile(r.Context(), paths, req.SourceName)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"chunks_submitted": n})
}

type enqueueURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleEnqueueURL(w http.ResponseWriter, r *http.Request) {
	var req enqueueURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ingesterr.BadRequest("invalid request body: %v", err))
		return
	}
	if req.URL == "" {
		respondError(w, ingesterr.BadRequest("url is required"))
		return
	}

	if err := s.coord.EnqueueURL(req.URL); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	state := s.coord.Progress(source)
	if state == nil {
		respondError(w, ingesterr.NotFound("no ingestion in progress for %q", source))
		return
	}
	respondJSON(w, http.StatusOK, state)
}

type searchRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ingesterr.BadRequest("invalid request body: %v", err))
		return
	}

	results, err := s.engine.Search(r.Context(), req.Query, req.Sources, req.Limit, req.Offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleDeepSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ingesterr.BadRequest("invalid request body: %v", err))
		return
	}

	results, err := s.engine.DeepSearch(r.Context(), req.Query, req.Sources)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

type relevantSourcesRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources"`
	Limit   int      `json:"limit"`
}

func (s *Server) handleMostRelevantSources(w http.ResponseWriter, r *http.Request) {
	var req relevantSourcesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ingesterr.BadRequest("invalid request body: %v", err))
		return
	}

	collections, err := s.engine.MostRelevantSources(r.Context(), req.Query, req.Sources, req.Limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sources": collections})
}
