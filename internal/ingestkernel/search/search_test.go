package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/vectorindex"
	"brag/internal/ingestkernel/vectorize"
)

// ingestFile chunks and stores a file directly through the index, bypassing
// the worker pipeline, so these tests exercise Engine in isolation.
func ingestFile(t *testing.T, ctx context.Context, idx vectorindex.Index, vec vectorize.Vectorizer, source, text string) {
	t.Helper()
	batch := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{
		{
			Text: text,
			Metadata: map[string]any{
				"source":      source,
				"source_type": ingestkernel.SourceTypeLocalTextFile,
				"start_index": 0,
				"end_index":   len(text),
			},
			SourceID: source,
		},
	}}
	require.NoError(t, vec.Vectorize(ctx, batch))
	require.NoError(t, idx.Create(ctx, source, ingestkernel.SourceTypeLocalTextFile, source))
	_, err := idx.AddBatch(ctx, source, batch.Inputs)
	require.NoError(t, err)
}

func TestEngine_Search_FindsIngestedContent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := "the quick brown fox jumps over the lazy dog"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	idx := vectorindex.NewMemoryIndex(8)
	vec := vectorize.NewDeterministic(8, true, 0)
	ingestFile(t, ctx, idx, vec, path, content)

	readQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	engine := New(readQueue, idx)

	// drive the embedder manually since no worker is running in this test
	driveErrs := make(chan error, 1)
	go func() {
		for {
			items := readQueue.GetMany(10)
			if len(items) == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			batch := &ingestkernel.TextBatch{Inputs: items}
			if err := vec.Vectorize(ctx, batch); err != nil {
				driveErrs <- err
				return
			}
			if err := idx.Create(ctx, ingestkernel.UserQuerySource, ingestkernel.SourceTypeUserQuery, ingestkernel.UserQuerySource); err != nil {
				driveErrs <- err
				return
			}
			if _, err := idx.AddBatch(ctx, ingestkernel.UserQuerySource, batch.Inputs); err != nil {
				driveErrs <- err
				return
			}
			driveErrs <- nil
			return
		}
	}()

	results, err := engine.Search(ctx, "quick brown fox", nil, 5, 0)
	require.NoError(t, err)
	select {
	case driveErr := <-driveErrs:
		require.NoError(t, driveErr)
	default:
	}
	require.NotEmpty(t, results)
	require.Contains(t, results[0].Text, "fox")
}

func TestEngine_Search_EmptyQueryReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	idx := vectorindex.NewMemoryIndex(8)
	readQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	engine := New(readQueue, idx)

	results, err := engine.Search(ctx, "   \n  ", nil, 5, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEngine_DeepSearch_RejectsTooManySources(t *testing.T) {
	ctx := context.Background()
	idx := vectorindex.NewMemoryIndex(8)
	readQueue := queue.New[ingestkernel.TextInput](0, queue.Config{})
	engine := New(readQueue, idx)

	_, err := engine.DeepSearch(ctx, "hello", []string{"a", "b", "c", "d"})
	require.Error(t, err)
}

func TestCutLineIntoChunks_SplitsLongLineAtWordBoundary(t *testing.T) {
	line := ""
	for i := 0; i < 50; i++ {
		line += "supercalifragilisticexpialidocious "
	}
	chunks := cutLineIntoChunks(line, 0)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Text), ChunkCharacterLimit)
	}
}

func TestCutLineIntoChunks_BlankLineYieldsNone(t *testing.T) {
	require.Empty(t, cutLineIntoChunks("   ", 0))
}

func TestMergeWindows_TracksIndependentMinDistance(t *testing.T) {
	hits := []vectorindex.TextInputWithDistance{
		{
			TextInput: ingestkernel.TextInput{Metadata: map[string]any{"start_index": 0, "end_index": 100}},
			Distance:  0.9,
		},
		{
			TextInput: ingestkernel.TextInput{Metadata: map[string]any{"start_index": 50, "end_index": 150}},
			Distance:  0.2,
		},
	}
	merged := mergeWindows(hits)
	require.Len(t, merged, 1)
	require.Equal(t, 0.2, merged[0].distance)
	require.Equal(t, 150+ContextExtensionCharacters, merged[0].end)
}
