package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/vectorindex"
	"brag/internal/ingestkernel/worker"
)

// StorageIdleTimeout: the reference run_continuous_storage loop never
// idles out (it is a plain daemon thread, not a SelfTerminatingThreadManager),
// so storage runs with idle shutdown disabled by passing <=0.
const StorageIdleTimeout = 0

// storageBatchSize mirrors run_continuous_storage's get_many(1000).
const storageBatchSize = 1000

// storageEmptySleep mirrors run_continuous_storage's time.sleep(1) when the
// queue has nothing to offer.
const storageEmptySleep = time.Second

// StorageWorker drains embedded TextInputs off a queue, groups them by
// source, and persists each group into the vector index, mirroring
// run_continuous_storage.
type StorageWorker struct {
	w *worker.SelfTerminatingWorker

	writeQueue  *queue.Queue[ingestkernel.TextInput]
	progressMgr *progress.Manager
	index       vectorindex.Index
}

// NewStorageWorker builds a StorageWorker and starts it immediately: unlike
// the other stages, storage has no idle timeout and runs as a permanent
// background consumer for the lifetime of the process, mirroring
// start_vec_storage_thread's unconditional daemon thread.
func NewStorageWorker(writeQueue *queue.Queue[ingestkernel.TextInput], progressMgr *progress.Manager, index vectorindex.Index) *StorageWorker {
	sw := &StorageWorker{
		writeQueue:  writeQueue,
		progressMgr: progressMgr,
		index:       index,
	}
	sw.w = worker.New("storage", StorageIdleTimeout, sw.run)
	sw.w.EnsureRunning()
	return sw
}

func (sw *StorageWorker) EnsureRunning() { sw.w.EnsureRunning() }
func (sw *StorageWorker) Stop()          { sw.w.Stop() }

func (sw *StorageWorker) run(ctx context.Context, h *worker.Handle) {
	log.Info().Msg("starting storage consumer")
	for {
		if h.ShouldStop() {
			break
		}
		items := sw.writeQueue.GetMany(storageBatchSize)
		if len(items) == 0 {
			sleepOrDone(ctx, storageEmptySleep)
			continue
		}
		h.MarkActive()
		sw.storeBatch(ctx, items)
	}
	log.Info().Msg("storage consumer terminated")
}

func (sw *StorageWorker) storeBatch(ctx context.Context, items []ingestkernel.TextInput) {
	log.Debug().Int("count", len(items)).Msg("received text inputs for storage")

	bySource := make(map[string][]ingestkernel.TextInput)
	for _, item := range items {
		source := item.Source()
		if source == "" {
			log.Warn().Msg("received text input with no source, skipping")
			continue
		}
		bySource[source] = append(bySource[source], item)
	}

	for source, group := range bySource {
		exists, err := sw.index.Exists(ctx, source)
		if err != nil {
			log.Error().Err(err).Str("source", source).Msg("failed to check source existence")
			continue
		}
		if !exists {
			log.Debug().Str("source", source).Msg("creating new data source")
			sourceType := group[0].SourceTypeOf()
			sourceName := sourceDisplayName(group[0])
			if err := sw.index.Create(ctx, source, sourceType, sourceName); err != nil {
				log.Error().Err(err).Str("source", source).Msg("failed to create data source")
				continue
			}
		}

		log.Debug().Int("count", len(group)).Str("source", source).Msg("storing text inputs for source")
		if _, err := sw.index.AddBatch(ctx, source, group); err != nil {
			log.Error().Err(err).Str("source", source).Msg("failed to store batch")
			continue
		}

		sw.progressMgr.IncrementPhaseProgress(source, ingestkernel.PhaseStoring, len(group))
		if pct := sw.progressMgr.GetPhasePercentage(source, ingestkernel.PhaseStoring); pct >= 100 {
			sw.progressMgr.MarkCompleted(source)
			if err := sw.index.SetState(ctx, source, ingestkernel.StateCompleted); err != nil {
				log.Error().Err(err).Str("source", source).Msg("failed to set source state to completed")
			}
		}
	}
}

func sourceDisplayName(item ingestkernel.TextInput) string {
	if v, ok := item.Metadata["source_name"].(string); ok {
		return v
	}
	return ""
}
