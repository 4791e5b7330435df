package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/progress"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/vectorize"
)

type erroringVectorizer struct{}

func (erroringVectorizer) Name() string       { return "erroring" }
func (erroringVectorizer) Dimension() int     { return 4 }
func (erroringVectorizer) Ping(context.Context) error { return nil }
func (erroringVectorizer) Vectorize(context.Context, *ingestkernel.TextBatch) error {
	return errors.New("vectorizer unavailable")
}

func TestEmbedderWorker_VectorizesAndForwardsBatch(t *testing.T) {
	readQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	writeQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	progressMgr := progress.NewManager()
	progressMgr.CreateState("doc-a", nil, nil)

	ew := NewEmbedderWorker(readQueue, writeQueue, progressMgr, vectorize.NewDeterministic(8, true, 0))

	require.NoError(t, readQueue.PutMany([]ingestkernel.TextInput{
		{Text: "hello", Metadata: map[string]any{"source": "doc-a"}, SourceID: "doc-a"},
		{Text: "world", Metadata: map[string]any{"source": "doc-a"}, SourceID: "doc-a"},
	}))

	waitFor(t, 2*time.Second, func() bool { return !writeQueue.Empty() })
	items := writeQueue.GetMany(10)
	require.Len(t, items, 2)
	require.NotEmpty(t, items[0].Vector)

	ew.Stop()
}

func TestEmbedderWorker_DropsBatchOnVectorizeError(t *testing.T) {
	readQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	writeQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	progressMgr := progress.NewManager()

	ew := NewEmbedderWorker(readQueue, writeQueue, progressMgr, erroringVectorizer{})
	require.NoError(t, readQueue.PutMany([]ingestkernel.TextInput{
		{Text: "hello", Metadata: map[string]any{"source": "doc-a"}},
	}))

	time.Sleep(200 * time.Millisecond)
	require.True(t, writeQueue.Empty())
	ew.Stop()
}
