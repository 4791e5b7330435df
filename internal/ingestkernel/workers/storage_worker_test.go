package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/vectorindex"
)

func TestStorageWorker_CreatesSourceAndStoresBatch(t *testing.T) {
	writeQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	progressMgr := progress.NewManager()
	progressMgr.CreateState("doc-a", nil, nil)
	progressMgr.AddPhase("doc-a", ingestkernel.PhaseStoring, 2)

	idx := vectorindex.NewMemoryIndex(4)
	sw := NewStorageWorker(writeQueue, progressMgr, idx)

	require.NoError(t, writeQueue.PutMany([]ingestkernel.TextInput{
		{Text: "a", Vector: []float32{1, 0, 0, 0}, Metadata: map[string]any{"source": "doc-a", "source_type": ingestkernel.SourceTypeLocalTextFile}},
		{Text: "b", Vector: []float32{0, 1, 0, 0}, Metadata: map[string]any{"source": "doc-a", "source_type": ingestkernel.SourceTypeLocalTextFile}},
	}))

	ctx := context.Background()
	waitFor(t, 2*time.Second, func() bool {
		exists, _ := idx.Exists(ctx, "doc-a")
		return exists
	})

	waitFor(t, 2*time.Second, func() bool {
		stats, err := idx.SourceStats(ctx, "doc-a")
		return err == nil && stats.VectorCount == 2
	})

	stats, err := idx.SourceStats(ctx, "doc-a")
	require.NoError(t, err)
	require.Equal(t, ingestkernel.StateCompleted, stats.State)

	sw.Stop()
}

func TestStorageWorker_SkipsInputsWithoutSource(t *testing.T) {
	writeQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	progressMgr := progress.NewManager()
	idx := vectorindex.NewMemoryIndex(4)
	sw := NewStorageWorker(writeQueue, progressMgr, idx)

	require.NoError(t, writeQueue.PutMany([]ingestkernel.TextInput{
		{Text: "orphan", Vector: []float32{1, 0, 0, 0}},
	}))

	time.Sleep(200 * time.Millisecond)
	sources, err := idx.ListSources(context.Background())
	require.NoError(t, err)
	require.Empty(t, sources)

	sw.Stop()
}
