// Package coordinator wires the four pipeline queues, the progress manager,
// and the vector index into a single entry point for submitting files and
// URLs, replacing the reference implementation's module-global
// GlobalDependency singleton with an explicit, constructible Dependencies
// container.
package coordinator

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/transcribe"
	"brag/internal/ingestkernel/vectorindex"
	"brag/internal/ingestkernel/vectorize"
	"brag/internal/ingestkernel/workers"
)

// Clock abstracts time.Now for deterministic tests, mirroring the teacher's
// rag/service Clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// QueueCapacity is the capacity of every inter-stage queue: 0 means
// unbounded. ingestconfig's AsyncQueueMaxSize (default 100000) is not
// applied here.
const QueueCapacity = 0

// DefaultMaxFilePaths mirrors INGESTION_PROCESS_MAX_FILE_PATHS's default,
// used when Config.MaxFilePaths is left unset.
const DefaultMaxFilePaths = 100

// Dependencies owns every long-lived collaborator of the ingestion
// pipeline: the inter-stage queues, the progress manager, the vector index,
// and the four worker stages built on top of them. Construct one with
// NewDependencies and call Wire to start the background workers.
type Dependencies struct {
	DownloadQueue      *queue.Queue[string]
	TranscriptionQueue *queue.Queue[workers.TranscriptionTask]
	EmbedderReadQueue  *queue.Queue[ingestkernel.TextInput]
	EmbedderWriteQueue *queue.Queue[ingestkernel.TextInput]

	ProgressMgr *progress.Manager
	Index       vectorindex.Index

	Vectorizer  vectorize.Vectorizer
	Transcriber transcribe.Provider
	Downloader  workers.AudioDownloader
	Archive     workers.TranscriptArchive

	TranscriptDir string
	MaxFilePaths  int

	log   zerolog.Logger
	clock Clock

	download      *workers.DownloadWorker
	transcription *workers.TranscriptionWorker
	embedder      *workers.EmbedderWorker
	storage       *workers.StorageWorker
}

// Option configures Dependencies during construction.
type Option func(*Dependencies)

// WithLogger sets a custom logger, defaulting to the package-level zerolog
// logger.
func WithLogger(l zerolog.Logger) Option { return func(d *Dependencies) { d.log = l } }

// WithClock sets a custom clock, defaulting to SystemClock.
func WithClock(c Clock) Option { return func(d *Dependencies) { d.clock = c } }

// Config bundles everything NewDependencies needs to build the queues, progress
// manager, and workers in one call.
type Config struct {
	Index         vectorindex.Index
	Vectorizer    vectorize.Vectorizer
	Transcriber   transcribe.Provider
	Downloader    workers.AudioDownloader
	Archive       workers.TranscriptArchive
	TranscriptDir string
	MaxFilePaths  int
}

// NewDependencies builds a Dependencies container wired from cfg but does
// not start any worker; call Wire for that.
func NewDependencies(cfg Config, opts ...Option) *Dependencies {
	d := &Dependencies{
		DownloadQueue:      queue.New[string](QueueCapacity, queue.Config{}),
		TranscriptionQueue: queue.New[workers.TranscriptionTask](QueueCapacity, queue.Config{}),
		EmbedderReadQueue:  queue.New[ingestkernel.TextInput](QueueCapacity, queue.Config{}),
		EmbedderWriteQueue: queue.New[ingestkernel.TextInput](QueueCapacity, queue.Config{}),
		ProgressMgr:        progress.NewManager(),
		Index:              cfg.Index,
		Vectorizer:         cfg.Vectorizer,
		Transcriber:        cfg.Transcriber,
		Downloader:         cfg.Downloader,
		Archive:            cfg.Archive,
		TranscriptDir:      cfg.TranscriptDir,
		MaxFilePaths:       cfg.MaxFilePaths,
		log:                log.Logger,
		clock:              SystemClock{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Wire constructs and starts the four pipeline stages. It is idempotent:
// calling it twice is a no-op after the first call.
func (d *Dependencies) Wire() {
	if d.storage != nil {
		return
	}
	d.download = workers.NewDownloadWorker(d.DownloadQueue, d.TranscriptionQueue, d.ProgressMgr, d.Downloader)
	d.transcription = workers.NewTranscriptionWorker(d.TranscriptionQueue, d.EmbedderReadQueue, d.ProgressMgr, d.Transcriber, d.TranscriptDir)
	if d.Archive != nil {
		d.transcription.SetArchive(d.Archive)
	}
	d.embedder = workers.NewEmbedderWorker(d.EmbedderReadQueue, d.EmbedderWriteQueue, d.ProgressMgr, d.Vectorizer)
	d.storage = workers.NewStorageWorker(d.EmbedderWriteQueue, d.ProgressMgr, d.Index)
	d.log.Info().Msg("ingestion pipeline wired")
}

// Shutdown stops every worker that Wire started, joining each with its
// configured timeout. It is a no-op if Wire was never called.
func (d *Dependencies) Shutdown() {
	if d.storage == nil {
		return
	}
	d.download.Stop()
	d.transcription.Stop()
	d.embedder.Stop()
	d.storage.Stop()
}
