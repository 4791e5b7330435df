// Package ingestapi is the thin HTTP transport over the ingestion
// coordinator and search engine, adapted from the teacher's
// internal/httpapi playground server (ServeMux + respondJSON/respondError
// pattern) onto this kernel's operations.
package ingestapi

import (
	"net/http"

	"brag/internal/ingestkernel/coordinator"
	"brag/internal/ingestkernel/search"
)

// Server exposes HTTP endpoints over a Coordinator and search Engine, the
// successor to the reference server's FastAPI routes.
type Server struct {
	coord  *coordinator.Coordinator
	engine *search.Engine
	mux    *http.ServeMux
}

// NewServer creates the HTTP API server wired to coord and engine.
func NewServer(coord *coordinator.Coordinator, engine *search.Engine) *Server {
	s := &Server{coord: coord, engine: engine, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/v1/sources/file", s.handleEnqueueFile)
	s.mux.HandleFunc("POST /api/v1/sources/url", s.handleEnqueueURL)
	s.mux.HandleFunc("GET /api/v1/sources/{source}/progress", s.handleProgress)

	s.mux.HandleFunc("POST /api/v1/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/v1/search/deep", s.handleDeepSearch)
	s.mux.HandleFunc("POST /api/v1/search/relevant-sources", s.handleMostRelevantSources)
}
