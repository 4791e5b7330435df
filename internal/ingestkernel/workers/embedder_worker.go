package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/vectorize"
	"brag/internal/ingestkernel/worker"
)

// EmbedderIdleTimeout mirrors EMBEDDER_IDLE_TIMEOUT.
const EmbedderIdleTimeout = 10 * time.Second

// embedderBatchSize caps how many TextInputs are drained and vectorized
// together per iteration.
const embedderBatchSize = 64

// EmbedderWorker drains text chunks off a queue, vectorizes them, and
// forwards the batch to the storage queue, mirroring EmbedderThreadManager.
//
// Unlike the reference Embedder.iter, which lets a vectorize error
// propagate and kill the thread, a failed batch here is logged and
// dropped: one bad batch should not take down the whole ingestion pipeline
// for every other source sharing the same worker.
type EmbedderWorker struct {
	w *worker.SelfTerminatingWorker

	readQueue   *queue.Queue[ingestkernel.TextInput]
	writeQueue  *queue.Queue[ingestkernel.TextInput]
	progressMgr *progress.Manager
	vectorizer  vectorize.Vectorizer
}

// NewEmbedderWorker builds an EmbedderWorker.
func NewEmbedderWorker(readQueue, writeQueue *queue.Queue[ingestkernel.TextInput], progressMgr *progress.Manager, vectorizer vectorize.Vectorizer) *EmbedderWorker {
	ew := &EmbedderWorker{
		readQueue:   readQueue,
		writeQueue:  writeQueue,
		progressMgr: progressMgr,
		vectorizer:  vectorizer,
	}
	ew.w = worker.New("embedder", EmbedderIdleTimeout, ew.run)
	readQueue.SetWake(ew.w.EnsureRunning)
	return ew
}

func (ew *EmbedderWorker) EnsureRunning() { ew.w.EnsureRunning() }
func (ew *EmbedderWorker) Stop()          { ew.w.Stop() }

func (ew *EmbedderWorker) run(ctx context.Context, h *worker.Handle) {
	log.Debug().Msg("starting embedder consumer")
	for {
		if h.ShouldStop() {
			break
		}
		if ew.readQueue.Empty() {
			sleepOrDone(ctx, pollInterval)
			continue
		}
		h.MarkActive()
		ew.iterate(ctx)
	}
	log.Info().Msg("embedder consumer terminated")
}

func (ew *EmbedderWorker) iterate(ctx context.Context) {
	items := ew.readQueue.GetMany(embedderBatchSize)
	if len(items) == 0 {
		return
	}
	log.Debug().Int("count", len(items)).Msg("processing batch of text inputs")

	batch := ingestkernel.TextBatch{Inputs: items}
	if err := ew.vectorizer.Vectorize(ctx, &batch); err != nil {
		log.Error().Err(err).Int("count", len(items)).Msg("failed to vectorize batch, dropping")
		return
	}

	for sourceID, count := range batch.CountBySourceID() {
		ew.progressMgr.IncrementPhaseProgress(sourceID, ingestkernel.PhaseEmbedding, count)
	}

	if err := ew.writeQueue.PutMany(batch.Inputs); err != nil {
		log.Error().Err(err).Int("count", len(batch.Inputs)).Msg("failed to enqueue embedded batch for storage")
	}
}
