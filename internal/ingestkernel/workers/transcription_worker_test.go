package workers

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
)

type fakeArchive struct {
	mu   sync.Mutex
	puts map[string]string
}

func (f *fakeArchive) Put(_ context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[key] = string(data)
	return nil
}

func (f *fakeArchive) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.puts[key]
	return v, ok
}

type fakeProvider struct {
	transcript string
	err        error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Transcribe(_ context.Context, _ string) (string, error) {
	return f.transcript, f.err
}

func TestTranscriptionWorker_ChunksTranscriptToEmbedderQueue(t *testing.T) {
	transcriptDir := t.TempDir()
	audioDir := t.TempDir()

	transcriptionQueue := queue.New[TranscriptionTask](0, queue.Config{})
	embedderQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	progressMgr := progress.NewManager()
	provider := &fakeProvider{transcript: "hello world this is a transcript"}

	tw := NewTranscriptionWorker(transcriptionQueue, embedderQueue, progressMgr, provider, transcriptDir)

	require.NoError(t, transcriptionQueue.PutMany([]TranscriptionTask{{
		ID:                "task-1",
		AudioPath:         filepath.Join(audioDir, "audio.m4a"),
		AudioFolderPath:   audioDir,
		Source:            "https://youtu.be/abc123",
		SourceType:        ingestkernel.SourceTypeYouTubeTranscript,
		DeleteAudioFolder: false,
	}}))

	waitFor(t, 2*time.Second, func() bool { return !embedderQueue.Empty() })

	items := embedderQueue.GetMany(100)
	require.NotEmpty(t, items)
	require.Equal(t, "https://youtu.be/abc123", items[0].Source())

	transcriptPath := filepath.Join(transcriptDir, "task-1.txt")
	data, err := os.ReadFile(transcriptPath)
	require.NoError(t, err)
	require.Equal(t, "hello world this is a transcript", string(data))

	tw.Stop()
}

func TestTranscriptionWorker_ArchivesTranscriptWhenSet(t *testing.T) {
	transcriptDir := t.TempDir()
	audioDir := t.TempDir()

	transcriptionQueue := queue.New[TranscriptionTask](0, queue.Config{})
	embedderQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	progressMgr := progress.NewManager()
	provider := &fakeProvider{transcript: "archived transcript content"}
	archive := &fakeArchive{}

	tw := NewTranscriptionWorker(transcriptionQueue, embedderQueue, progressMgr, provider, transcriptDir)
	tw.SetArchive(archive)

	require.NoError(t, transcriptionQueue.PutMany([]TranscriptionTask{{
		ID:              "task-3",
		AudioPath:       filepath.Join(audioDir, "audio.m4a"),
		AudioFolderPath: audioDir,
		Source:          "https://youtu.be/xyz789",
		SourceType:      ingestkernel.SourceTypeYouTubeTranscript,
	}}))

	waitFor(t, 2*time.Second, func() bool {
		_, ok := archive.get("transcripts/task-3.txt")
		return ok
	})

	data, _ := archive.get("transcripts/task-3.txt")
	require.Equal(t, "archived transcript content", data)

	tw.Stop()
}

func TestTranscriptionWorker_FailureMarksSourceFailed(t *testing.T) {
	transcriptDir := t.TempDir()
	transcriptionQueue := queue.New[TranscriptionTask](0, queue.Config{})
	embedderQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	progressMgr := progress.NewManager()
	provider := &fakeProvider{err: context.DeadlineExceeded}

	failed := make(chan struct{}, 1)
	progressMgr.CreateState("source-x", nil, func() { failed <- struct{}{} })

	tw := NewTranscriptionWorker(transcriptionQueue, embedderQueue, progressMgr, provider, transcriptDir)
	require.NoError(t, transcriptionQueue.PutMany([]TranscriptionTask{{
		ID:     "task-2",
		Source: "source-x",
	}}))

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected failure callback to fire")
	}
	tw.Stop()
}
