package ingestapi

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"brag/internal/ingestkernel/coordinator"
	"brag/internal/ingestkernel/search"
	"brag/internal/ingestkernel/transcribe"
	"brag/internal/ingestkernel/vectorindex"
	"brag/internal/ingestkernel/vectorize"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	deps := coordinator.NewDependencies(coordinator.Config{
		Index:         vectorindex.NewMemoryIndex(8),
		Vectorizer:    vectorize.NewDeterministic(8, true, 0),
		Transcriber:   &transcribe.MockProvider{Transcript: "a transcribed sentence"},
		TranscriptDir: t.TempDir(),
	})
	t.Cleanup(deps.Shutdown)
	coord := coordinator.New(deps)
	engine := search.New(deps.EmbedderReadQueue, deps.Index)
	return NewServer(coord, engine)
}

func TestHandleEnqueueFile_MissingPathReturnsBadRequest(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(enqueueFileRequest{})
	req := httptest.NewRequest("POST", "/api/v1/sources/file", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, 400, rec.Code)
}

func TestHandleEnqueueFile_SubmitsChunks(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("some test content for the ingestion endpoint"), 0o644))

	body, _ := json.Marshal(enqueueFileRequest{Path: path})
	req := httptest.NewRequest("POST", "/api/v1/sources/file", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, 202, rec.Code)
}

func TestHandleEnqueueURL_RejectsNonYouTube(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(enqueueURLRequest{URL: "https://example.com"})
	req := httptest.NewRequest("POST", "/api/v1/sources/url", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, 400, rec.Code)
}

func TestHandleProgress_UnknownSourceReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/sources/nope/progress", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, 404, rec.Code)
}

func TestHandleSearch_EmptyQueryReturnsEmptyResults(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(searchRequest{Query: "   "})
	req := httptest.NewRequest("POST", "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp["results"])
}

func TestHandleDeepSearch_TooManySourcesReturnsBadRequest(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(searchRequest{Query: "hello", Sources: []string{"a", "b", "c", "d"}})
	req := httptest.NewRequest("POST", "/api/v1/search/deep", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, 400, rec.Code)
}
