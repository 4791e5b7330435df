package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/worker"
	"brag/internal/ingestkernel/ytdl"
)

// DownloadIdleTimeout mirrors DOWNLOAD_THREAD_IDLE_TIMEOUT.
const DownloadIdleTimeout = 300 * time.Second

// pollInterval is how long the idle loop sleeps between empty polls,
// mirroring every reference thread manager's time.sleep(0.3).
const pollInterval = 300 * time.Millisecond

// AudioDownloader resolves a URL to a local audio file. *ytdl.Downloader
// satisfies this; tests supply a stub to avoid real network calls.
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, rawURL string) (*ytdl.DownloadOutput, error)
}

// DownloadWorker drains YouTube URLs off a queue, resolves and downloads
// their audio stream, and hands the result to the transcription queue as a
// TranscriptionTask, mirroring DownloadManager.
type DownloadWorker struct {
	w *worker.SelfTerminatingWorker

	downloadQueue      *queue.Queue[string]
	transcriptionQueue *queue.Queue[TranscriptionTask]
	progressMgr        *progress.Manager
	downloader         AudioDownloader
}

// NewDownloadWorker builds a DownloadWorker. Call EnsureRunning to start it;
// it self-terminates after DownloadIdleTimeout of inactivity and is
// resurrected by the download queue's wake hook.
func NewDownloadWorker(downloadQueue *queue.Queue[string], transcriptionQueue *queue.Queue[TranscriptionTask], progressMgr *progress.Manager, downloader AudioDownloader) *DownloadWorker {
	dw := &DownloadWorker{
		downloadQueue:      downloadQueue,
		transcriptionQueue: transcriptionQueue,
		progressMgr:        progressMgr,
		downloader:         downloader,
	}
	dw.w = worker.New("download", DownloadIdleTimeout, dw.run)
	downloadQueue.SetWake(dw.w.EnsureRunning)
	return dw
}

// EnsureRunning starts the worker if it isn't already running.
func (dw *DownloadWorker) EnsureRunning() { dw.w.EnsureRunning() }

// Stop requests cooperative shutdown.
func (dw *DownloadWorker) Stop() { dw.w.Stop() }

func (dw *DownloadWorker) run(ctx context.Context, h *worker.Handle) {
	log.Info().Msg("starting YouTube download consumer")
	for {
		if h.ShouldStop() {
			break
		}
		url, ok := dw.downloadQueue.GetOne()
		if !ok {
			sleepOrDone(ctx, pollInterval)
			continue
		}
		h.MarkActive()
		dw.processURL(ctx, url)
	}
	log.Info().Msg("YouTube download consumer terminated")
}

func (dw *DownloadWorker) processURL(ctx context.Context, url string) {
	if !ytdl.ValidYouTubeURL(url) {
		log.Error().Str("url", url).Msg("invalid YouTube URL ignored")
		return
	}

	dw.progressMgr.AddPhase(url, ingestkernel.PhaseDownloading, 1)
	output, err := dw.downloader.DownloadAudio(ctx, url)
	if err != nil {
		dw.progressMgr.MarkFailed(url)
		log.Error().Err(err).Str("url", url).Msg("error processing YouTube URL")
		return
	}
	dw.progressMgr.IncrementPhaseProgress(url, ingestkernel.PhaseDownloading, 1)

	task := TranscriptionTask{
		ID:              output.FileID,
		AudioPath:       output.AudioFilePath,
		AudioFolderPath: output.AudioFolderPath,
		Source:          url,
		SourceType:      ingestkernel.SourceTypeYouTubeTranscript,
		TaskID:          uuid.NewString(),
		Metadata: map[string]any{
			"title":       output.Title,
			"video_id":    output.VideoID,
			"duration":    output.Duration,
			"uploader":    output.Uploader,
			"temp_folder": output.AudioFolderPath,
		},
		DeleteAudioFolder: true,
	}
	if err := dw.transcriptionQueue.PutMany([]TranscriptionTask{task}); err != nil {
		log.Error().Err(err).Str("url", url).Msg("failed to queue audio for transcription")
		dw.progressMgr.MarkFailed(url)
		return
	}
	log.Debug().Str("url", url).Msg("queued downloaded audio for transcription")
}
