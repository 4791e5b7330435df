package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/transcribe"
	"brag/internal/ingestkernel/vectorindex"
	"brag/internal/ingestkernel/vectorize"
	"brag/internal/ingestkernel/ytdl"
)

type stubDownloader struct {
	output *ytdl.DownloadOutput
	err    error
}

func (s stubDownloader) DownloadAudio(context.Context, string) (*ytdl.DownloadOutput, error) {
	return s.output, s.err
}

func newTestDependencies(t *testing.T) *Dependencies {
	t.Helper()
	return NewDependencies(Config{
		Index:         vectorindex.NewMemoryIndex(8),
		Vectorizer:    vectorize.NewDeterministic(8, true, 0),
		Transcriber:   &transcribe.MockProvider{Transcript: "a transcribed sentence with several words"},
		Downloader:    stubDownloader{},
		TranscriptDir: t.TempDir(),
	})
}

func waitForSource(t *testing.T, idx vectorindex.Index, source string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		exists, _ := idx.Exists(context.Background(), source)
		if exists {
			stats, err := idx.SourceStats(context.Background(), source)
			if err == nil && stats.State == ingestkernel.StateCompleted {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("source %q did not complete within %s", source, timeout)
}

func TestCoordinator_EnqueueFile_ChunksAndStores(t *testing.T) {
	deps := newTestDependencies(t)
	defer deps.Shutdown()
	c := New(deps)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world, this is a small ingestion test document."), 0o644))

	n, err := c.EnqueueFile(context.Background(), []string{path}, "")
	require.NoError(t, err)
	require.Greater(t, n, 0)

	waitForSource(t, deps.Index, path, 3*time.Second)
}

func TestCoordinator_EnqueueFile_MissingFile(t *testing.T) {
	deps := newTestDependencies(t)
	defer deps.Shutdown()
	c := New(deps)

	_, err := c.EnqueueFile(context.Background(), []string{filepath.Join(t.TempDir(), "missing.txt")}, "")
	require.Error(t, err)
}

func TestCoordinator_EnqueueFile_AudioRoutesThroughTranscription(t *testing.T) {
	deps := newTestDependencies(t)
	defer deps.Shutdown()
	c := New(deps)

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not real audio, just bytes"), 0o644))

	n, err := c.EnqueueFile(context.Background(), []string{path}, "")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	waitForSource(t, deps.Index, path, 3*time.Second)
}

func TestCoordinator_EnqueueFile_ReingestReplacesVectors(t *testing.T) {
	deps := newTestDependencies(t)
	defer deps.Shutdown()
	c := New(deps)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world, this is a small ingestion test document with enough words to chunk."), 0o644))

	n1, err := c.EnqueueFile(context.Background(), []string{path}, "")
	require.NoError(t, err)
	waitForSource(t, deps.Index, path, 3*time.Second)

	n2, err := c.EnqueueFile(context.Background(), []string{path}, "")
	require.NoError(t, err)
	waitForSource(t, deps.Index, path, 3*time.Second)

	require.Equal(t, n1, n2)
	stats, err := deps.Index.SourceStats(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, n2, stats.VectorCount)
}

func TestCoordinator_EnqueueFile_ExpandsDirectoryAndThreadsSourceName(t *testing.T) {
	deps := newTestDependencies(t)
	defer deps.Shutdown()
	c := New(deps)

	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("first document with some content"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("second document with some content"), 0o644))

	n, err := c.EnqueueFile(context.Background(), []string{dir}, "my-group")
	require.NoError(t, err)
	require.Greater(t, n, 0)

	waitForSource(t, deps.Index, pathA, 3*time.Second)
	waitForSource(t, deps.Index, pathB, 3*time.Second)

	stats, err := deps.Index.SourceStatsByName(context.Background(), "my-group")
	require.NoError(t, err)
	require.Len(t, stats, 2)
}

func TestCoordinator_EnqueueURL_RejectsNonYouTube(t *testing.T) {
	deps := newTestDependencies(t)
	defer deps.Shutdown()
	c := New(deps)

	err := c.EnqueueURL("https://example.com/not-youtube")
	require.Error(t, err)
}

func TestCoordinator_EnqueueURL_AcceptsAndDownloads(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.m4a")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake"), 0o644))

	deps := NewDependencies(Config{
		Index:      vectorindex.NewMemoryIndex(8),
		Vectorizer: vectorize.NewDeterministic(8, true, 0),
		Transcriber: &transcribe.MockProvider{Transcript: "a transcribed sentence with several words"},
		Downloader: stubDownloader{output: &ytdl.DownloadOutput{
			FileID:          "file-1",
			AudioFilePath:   audioPath,
			AudioFolderPath: dir,
			Title:           "Test Video",
			VideoID:         "abc12345678",
		}},
		TranscriptDir: t.TempDir(),
	})
	defer deps.Shutdown()
	c := New(deps)

	require.NoError(t, c.EnqueueURL("https://www.youtube.com/watch?v=abc12345678"))

	waitForSource(t, deps.Index, "https://www.youtube.com/watch?v=abc12345678", 3*time.Second)
}
