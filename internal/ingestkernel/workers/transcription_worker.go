package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/readio"
	"brag/internal/ingestkernel/transcribe"
	"brag/internal/ingestkernel/worker"
)

// TranscriptArchive optionally persists a durable copy of each transcript
// alongside the local transcriptDir copy, the home for the reference's
// optional S3-backed object store.
type TranscriptArchive interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
}

// TranscriptionIdleTimeout mirrors AUDIO_TRANSCRIPTION_IDLE_TIMEOUT.
const TranscriptionIdleTimeout = 10 * time.Second

// TranscriptionWorker drains audio files off a queue, transcribes them, and
// chunks the transcript into TextInputs on the embedder's read queue,
// mirroring TranscriptionThreadManager.
type TranscriptionWorker struct {
	w *worker.SelfTerminatingWorker

	transcriptionQueue *queue.Queue[TranscriptionTask]
	embedderQueue      *queue.Queue[ingestkernel.TextInput]
	progressMgr        *progress.Manager
	provider           transcribe.Provider

	// transcriptDir is where transcripts are written before being re-read
	// by a TextReader, mirroring AUDIO_TRANSCRIPTION_DIR.
	transcriptDir string

	archive TranscriptArchive
}

// SetArchive wires an optional durable archive for transcripts. Call before
// the worker starts processing tasks; nil (the default) skips archiving.
func (tw *TranscriptionWorker) SetArchive(a TranscriptArchive) { tw.archive = a }

// NewTranscriptionWorker builds a TranscriptionWorker.
func NewTranscriptionWorker(transcriptionQueue *queue.Queue[TranscriptionTask], embedderQueue *queue.Queue[ingestkernel.TextInput], progressMgr *progress.Manager, provider transcribe.Provider, transcriptDir string) *TranscriptionWorker {
	tw := &TranscriptionWorker{
		transcriptionQueue: transcriptionQueue,
		embedderQueue:      embedderQueue,
		progressMgr:        progressMgr,
		provider:           provider,
		transcriptDir:      transcriptDir,
	}
	tw.w = worker.New("transcription", TranscriptionIdleTimeout, tw.run)
	transcriptionQueue.SetWake(tw.w.EnsureRunning)
	return tw
}

func (tw *TranscriptionWorker) EnsureRunning() { tw.w.EnsureRunning() }
func (tw *TranscriptionWorker) Stop()          { tw.w.Stop() }

func (tw *TranscriptionWorker) run(ctx context.Context, h *worker.Handle) {
	log.Info().Msg("starting transcription consumer")
	for {
		if h.ShouldStop() {
			break
		}
		task, ok := tw.transcriptionQueue.GetOne()
		if !ok {
			sleepOrDone(ctx, pollInterval)
			continue
		}
		h.MarkActive()
		tw.processTask(ctx, task)
	}
	log.Info().Msg("transcription consumer terminated")
}

func (tw *TranscriptionWorker) processTask(ctx context.Context, task TranscriptionTask) {
	tw.progressMgr.AddPhase(task.Source, ingestkernel.PhaseTranscription, 1)

	transcript, err := tw.provider.Transcribe(ctx, task.AudioPath)
	if err != nil {
		tw.progressMgr.MarkFailed(task.Source)
		log.Error().Err(err).Str("source", task.Source).Msg("transcription failed")
		return
	}

	transcriptPath := filepath.Join(tw.transcriptDir, task.ID+".txt")
	if err := os.MkdirAll(filepath.Dir(transcriptPath), 0o755); err != nil {
		tw.progressMgr.MarkFailed(task.Source)
		log.Error().Err(err).Str("source", task.Source).Msg("failed to create transcript directory")
		return
	}
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		tw.progressMgr.MarkFailed(task.Source)
		log.Error().Err(err).Str("source", task.Source).Msg("failed to write transcript")
		return
	}

	if tw.archive != nil {
		key := "transcripts/" + task.ID + ".txt"
		if err := tw.archive.Put(ctx, key, bytes.NewReader([]byte(transcript)), "text/plain"); err != nil {
			log.Warn().Err(err).Str("source", task.Source).Msg("failed to archive transcript")
		}
	}

	if task.DeleteAudioFolder && task.AudioFolderPath != "" {
		log.Debug().Str("path", task.AudioFolderPath).Msg("deleting audio folder")
		if err := os.RemoveAll(task.AudioFolderPath); err != nil {
			log.Warn().Err(err).Str("path", task.AudioFolderPath).Msg("failed to clean up audio folder")
		}
	}

	tw.progressMgr.IncrementPhaseProgress(task.Source, ingestkernel.PhaseTranscription, 1)

	if err := tw.chunkTranscript(transcriptPath, task); err != nil {
		log.Error().Err(err).Str("source", task.Source).Msg("failed to chunk transcript for embedding")
	}
}

// chunkTranscript re-reads the transcript file through a TextReader and
// submits its chunks to the embedder queue, mirroring
// generate_embeddings_for_audio_transcription.
func (tw *TranscriptionWorker) chunkTranscript(transcriptPath string, task TranscriptionTask) error {
	tw.progressMgr.AddPhase(task.Source, ingestkernel.PhaseEmbedding, 0)

	reader := readio.NewTextReader(transcriptPath)
	var inputs []ingestkernel.TextInput
	err := reader.ReadIter(func(chunk ingestkernel.TextChunk) bool {
		meta := chunk.ToMetadata()
		meta["id"] = uuid.NewString()
		meta["source"] = task.Source
		meta["source_type"] = task.SourceType
		meta["transcription_path"] = transcriptPath
		for k, v := range task.Metadata {
			meta[k] = v
		}
		inputs = append(inputs, ingestkernel.TextInput{
			Text:     chunk.Text,
			Metadata: meta,
			SourceID: task.Source,
		})
		return true
	})
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if len(inputs) == 0 {
		return nil
	}

	tw.progressMgr.SetPhaseTotal(task.Source, ingestkernel.PhaseEmbedding, len(inputs))
	tw.progressMgr.AddPhase(task.Source, ingestkernel.PhaseStoring, len(inputs))

	if err := tw.embedderQueue.PutMany(inputs); err != nil {
		return fmt.Errorf("enqueue for embedding: %w", err)
	}
	log.Debug().Int("chunks", len(inputs)).Str("source", task.Source).Msg("generated transcript chunks")
	return nil
}
