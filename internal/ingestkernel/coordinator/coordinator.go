package coordinator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/ingesterr"
	"brag/internal/ingestkernel/readio"
	"brag/internal/ingestkernel/workers"
	"brag/internal/ingestkernel/ytdl"
)

// Coordinator is the single entry point callers use to submit local files
// or a YouTube URL for ingestion, mirroring _process_file_async and the
// reference server's URL submission endpoint, both of which previously
// reached into the GlobalDependency singleton directly.
type Coordinator struct {
	deps *Dependencies
}

// New wraps deps, calling Wire if it has not already started the pipeline.
func New(deps *Dependencies) *Coordinator {
	deps.Wire()
	return &Coordinator{deps: deps}
}

// EnqueueFile expands paths (each entry may be a file or a directory, the
// directory case walked recursively) into a flat file list, mirroring
// expand_file_path, rejects the request if the expansion exceeds
// MaxFilePaths, and then processes each expanded file in turn under
// sourceName, mirroring _process_file_async's per-file loop. It returns the
// total number of chunks submitted for embedding across every file (0 for
// any audio file among them, since its chunk count is not known until
// transcription completes).
func (c *Coordinator) EnqueueFile(ctx context.Context, paths []string, sourceName string) (int, error) {
	expanded, err := expandFilePaths(paths)
	if err != nil {
		return 0, err
	}

	max := c.deps.MaxFilePaths
	if max <= 0 {
		max = DefaultMaxFilePaths
	}
	if len(expanded) > max {
		return 0, ingesterr.BadRequest("too many files: %d (max = %d)", len(expanded), max)
	}

	var total int
	for _, filePath := range expanded {
		n, err := c.enqueueOneFile(ctx, filePath, sourceName)
		if err != nil {
			log.Error().Err(err).Str("file", filePath).Msg("failed to process file")
			continue
		}
		total += n
	}
	return total, nil
}

// expandFilePaths mirrors expand_file_path applied to each entry of paths: a
// file passes through unchanged, a directory is walked recursively for every
// file beneath it.
func expandFilePaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, ingesterr.Wrap(ingesterr.KindNotFound, fmt.Sprintf("invalid file path: %s", p), err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, ingesterr.Wrap(ingesterr.KindInternal, fmt.Sprintf("failed to walk directory %s", p), err)
		}
	}
	return out, nil
}

// enqueueOneFile deletes any live source already registered at filePath
// before re-ingesting it, mirroring _process_file_async's
// "if data_source_map.exists(file_path): _delete_data_source(file_path)",
// so a repeat ingest replaces the source's vectors instead of appending to
// them.
func (c *Coordinator) enqueueOneFile(ctx context.Context, filePath, sourceName string) (int, error) {
	if exists, err := c.deps.Index.Exists(ctx, filePath); err == nil && exists {
		log.Debug().Str("source", filePath).Msg("data source already exists, deleting it prior to ingestion")
		if _, err := c.deps.Index.Delete(ctx, filePath); err != nil {
			return 0, ingesterr.Wrap(ingesterr.KindInternal, "failed to delete existing data source", err)
		}
	}

	if ingestkernel.IsAudioExtension(filePath) {
		return 0, c.handleAudioFile(ctx, filePath, sourceName)
	}
	return c.enqueueTextFile(ctx, filePath, sourceName)
}

// enqueueTextFile reads filePath, chunks it, and submits the chunks for
// embedding. It registers the ingestion state up front with real
// success/failure callbacks that flip the index's collection state, and
// creates the source in the index before any chunk is read, mirroring
// _process_file_async's INITIALIZATION phase and data_source_map.create
// call ahead of generate_embeddings_for_file.
func (c *Coordinator) enqueueTextFile(ctx context.Context, filePath, sourceName string) (int, error) {
	c.deps.ProgressMgr.CreateState(filePath,
		func() { _ = c.deps.Index.SetState(ctx, filePath, ingestkernel.StateCompleted) },
		func() { _ = c.deps.Index.SetState(ctx, filePath, ingestkernel.StateFailed) },
	)
	c.deps.ProgressMgr.AddPhase(filePath, ingestkernel.PhaseInitialization, 1)

	reader := readio.NewReader(filePath, readio.DefaultChunkCharacterLimit)
	if err := c.deps.Index.Create(ctx, filePath, reader.SourceType(), sourceName); err != nil {
		c.deps.ProgressMgr.MarkFailed(filePath)
		return 0, ingesterr.Wrap(ingesterr.KindInternal, "failed to create data source", err)
	}
	c.deps.ProgressMgr.IncrementPhaseProgress(filePath, ingestkernel.PhaseInitialization, 1)

	c.deps.ProgressMgr.AddPhase(filePath, ingestkernel.PhaseEmbedding, 0)
	c.deps.ProgressMgr.AddPhase(filePath, ingestkernel.PhaseStoring, 0)

	var inputs []ingestkernel.TextInput
	err := reader.ReadIter(func(chunk ingestkernel.TextChunk) bool {
		meta := chunk.ToMetadata()
		meta["id"] = uuid.NewString()
		meta["source"] = filePath
		meta["source_type"] = reader.SourceType()
		if sourceName != "" {
			meta["source_name"] = sourceName
		}
		inputs = append(inputs, ingestkernel.TextInput{
			Text:     chunk.Text,
			Metadata: meta,
			SourceID: filePath,
		})
		return true
	})
	if err != nil {
		c.deps.ProgressMgr.MarkFailed(filePath)
		return 0, ingesterr.Wrap(ingesterr.KindInternal, "failed to read file", err)
	}

	if len(inputs) == 0 {
		c.deps.ProgressMgr.MarkCompleted(filePath)
		return 0, nil
	}

	c.deps.ProgressMgr.SetPhaseTotal(filePath, ingestkernel.PhaseEmbedding, len(inputs))
	c.deps.ProgressMgr.SetPhaseTotal(filePath, ingestkernel.PhaseStoring, len(inputs))

	if err := c.deps.EmbedderReadQueue.PutMany(inputs); err != nil {
		c.deps.ProgressMgr.MarkFailed(filePath)
		return 0, ingesterr.Wrap(ingesterr.KindInternal, "failed to enqueue chunks for embedding", err)
	}
	return len(inputs), nil
}

// handleAudioFile submits filePath directly to the transcription queue as a
// local audio source, skipping the download stage, mirroring
// handle_audio_file. Like enqueueTextFile it creates the source in the
// index with state=processing before anything is queued, so a failure mid
// transcription still leaves the index in a failed (not processing) state.
func (c *Coordinator) handleAudioFile(ctx context.Context, filePath, sourceName string) error {
	c.deps.ProgressMgr.CreateState(filePath,
		func() { _ = c.deps.Index.SetState(ctx, filePath, ingestkernel.StateCompleted) },
		func() { _ = c.deps.Index.SetState(ctx, filePath, ingestkernel.StateFailed) },
	)
	c.deps.ProgressMgr.AddPhase(filePath, ingestkernel.PhaseInitialization, 1)

	if err := c.deps.Index.Create(ctx, filePath, ingestkernel.SourceTypeLocalAudioFile, sourceName); err != nil {
		c.deps.ProgressMgr.MarkFailed(filePath)
		return ingesterr.Wrap(ingesterr.KindInternal, "failed to create data source", err)
	}
	c.deps.ProgressMgr.IncrementPhaseProgress(filePath, ingestkernel.PhaseInitialization, 1)

	c.deps.ProgressMgr.AddPhase(filePath, ingestkernel.PhaseTranscription, 1)
	c.deps.ProgressMgr.AddPhase(filePath, ingestkernel.PhaseEmbedding, 0)
	c.deps.ProgressMgr.AddPhase(filePath, ingestkernel.PhaseStoring, 0)

	var meta map[string]any
	if sourceName != "" {
		meta = map[string]any{"source_name": sourceName}
	}
	task := workers.TranscriptionTask{
		ID:                uuid.NewString(),
		AudioPath:         filePath,
		AudioFolderPath:   filePath,
		Source:            filePath,
		SourceType:        ingestkernel.SourceTypeLocalAudioFile,
		TaskID:            uuid.NewString(),
		Metadata:          meta,
		DeleteAudioFolder: false,
	}
	if err := c.deps.TranscriptionQueue.PutMany([]workers.TranscriptionTask{task}); err != nil {
		c.deps.ProgressMgr.MarkFailed(filePath)
		return ingesterr.Wrap(ingesterr.KindInternal, "failed to enqueue audio file for transcription", err)
	}
	return nil
}

// EnqueueURL validates url as a YouTube watch URL and submits it to the
// download queue, mirroring the reference server's URL submission endpoint
// ahead of DownloadManager.
func (c *Coordinator) EnqueueURL(url string) error {
	if !ytdl.ValidYouTubeURL(url) {
		return ingesterr.BadRequest("not a valid YouTube URL: %s", url)
	}

	c.deps.ProgressMgr.CreateState(url, nil, nil)
	c.deps.ProgressMgr.AddPhase(url, ingestkernel.PhaseDownloading, 1)

	if err := c.deps.DownloadQueue.PutMany([]string{url}); err != nil {
		c.deps.ProgressMgr.MarkFailed(url)
		return ingesterr.Wrap(ingesterr.KindInternal, "failed to enqueue URL for download", err)
	}
	return nil
}

// Progress returns a snapshot of source's ingestion state, or nil if no
// ingestion is in flight (or already completed) for it.
func (c *Coordinator) Progress(source string) map[string]any {
	state := c.deps.ProgressMgr.GetState(source)
	if state == nil {
		return nil
	}
	return state.ToDict()
}

// Dependencies returns the underlying container, used by the search engine
// to reach the vector index, progress manager, and embedder queue directly.
func (c *Coordinator) Dependencies() *Dependencies { return c.deps }
