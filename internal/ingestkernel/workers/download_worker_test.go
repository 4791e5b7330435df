package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/ytdl"
)

type fakeDownloader struct {
	output *ytdl.DownloadOutput
	err    error
}

func (f *fakeDownloader) DownloadAudio(_ context.Context, _ string) (*ytdl.DownloadOutput, error) {
	return f.output, f.err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDownloadWorker_QueuesTranscriptionTaskOnSuccess(t *testing.T) {
	downloadQueue := queue.New[string](0, queue.Config{})
	transcriptionQueue := queue.New[TranscriptionTask](0, queue.Config{})
	progressMgr := progress.NewManager()
	downloader := &fakeDownloader{output: &ytdl.DownloadOutput{
		FileID:          "file-1",
		AudioFilePath:   "/tmp/file-1/audio.m4a",
		AudioFolderPath: "/tmp/file-1",
		Title:           "Test Video",
		VideoID:         "abc123",
	}}

	dw := NewDownloadWorker(downloadQueue, transcriptionQueue, progressMgr, downloader)
	require.NoError(t, downloadQueue.PutNowait("https://www.youtube.com/watch?v=abc123"))

	waitFor(t, 2*time.Second, func() bool { return !transcriptionQueue.Empty() })

	task, ok := transcriptionQueue.GetOne()
	require.True(t, ok)
	require.Equal(t, "file-1", task.ID)
	require.Equal(t, "https://www.youtube.com/watch?v=abc123", task.Source)

	dw.Stop()
}

func TestDownloadWorker_InvalidURLIsIgnored(t *testing.T) {
	downloadQueue := queue.New[string](0, queue.Config{})
	transcriptionQueue := queue.New[TranscriptionTask](0, queue.Config{})
	progressMgr := progress.NewManager()
	downloader := &fakeDownloader{}

	dw := NewDownloadWorker(downloadQueue, transcriptionQueue, progressMgr, downloader)
	require.NoError(t, downloadQueue.PutNowait("https://example.com/not-youtube"))

	time.Sleep(200 * time.Millisecond)
	require.True(t, transcriptionQueue.Empty())
	dw.Stop()
}

func TestDownloadWorker_DownloadErrorDoesNotQueueTask(t *testing.T) {
	downloadQueue := queue.New[string](0, queue.Config{})
	transcriptionQueue := queue.New[TranscriptionTask](0, queue.Config{})
	progressMgr := progress.NewManager()
	downloader := &fakeDownloader{err: errors.New("boom")}

	dw := NewDownloadWorker(downloadQueue, transcriptionQueue, progressMgr, downloader)
	require.NoError(t, downloadQueue.PutNowait("https://youtu.be/abc123"))

	time.Sleep(200 * time.Millisecond)
	require.True(t, transcriptionQueue.Empty())
	dw.Stop()
}
