package vectorindex

import (
	"context"
	"testing"

	"brag/internal/ingestkernel"

	"github.com/stretchr/testify/require"
)

func TestCreateAndAddBatch_RoundTrips(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)

	require.NoError(t, idx.Create(ctx, "doc-a", ingestkernel.SourceTypeLocalTextFile, "Doc A"))
	ids, err := idx.AddBatch(ctx, "doc-a", []ingestkernel.TextInput{
		{Text: "hello", Vector: []float32{1, 0, 0, 0}},
		{Text: "world", Vector: []float32{0, 1, 0, 0}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	stats, err := idx.SourceStats(ctx, "doc-a")
	require.NoError(t, err)
	require.Equal(t, 2, stats.VectorCount)
	require.Equal(t, "Doc A", stats.SourceName)

	in, ok, err := idx.GetByID(ctx, "doc-a", ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", in.Text)
}

func TestDelete_RemovesVectorsAndCatalogEntry(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)
	require.NoError(t, idx.Create(ctx, "doc-a", ingestkernel.SourceTypeLocalTextFile, "A"))
	ids, err := idx.AddBatch(ctx, "doc-a", []ingestkernel.TextInput{{Text: "x", Vector: []float32{1, 0, 0, 0}}})
	require.NoError(t, err)

	deleted, err := idx.Delete(ctx, "doc-a")
	require.NoError(t, err)
	require.True(t, deleted)

	exists, err := idx.Exists(ctx, "doc-a")
	require.NoError(t, err)
	require.False(t, exists)

	_, ok, err := idx.GetByID(ctx, "doc-a", ids[0])
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteByName_RemovesAllMatchingSources(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)
	require.NoError(t, idx.Create(ctx, "path/a", ingestkernel.SourceTypeLocalTextFile, "shared"))
	require.NoError(t, idx.Create(ctx, "path/b", ingestkernel.SourceTypeLocalTextFile, "shared"))
	require.NoError(t, idx.Create(ctx, "path/c", ingestkernel.SourceTypeLocalTextFile, "other"))

	deleted, err := idx.DeleteByName(ctx, "shared")
	require.NoError(t, err)
	require.True(t, deleted)

	sources, err := idx.ListSources(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"path/c"}, sources)
}

func TestSearch_ExcludesUserQuerySourceByDefault(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)
	require.NoError(t, idx.Create(ctx, "doc-a", ingestkernel.SourceTypeLocalTextFile, "A"))
	require.NoError(t, idx.Create(ctx, ingestkernel.UserQuerySource, ingestkernel.SourceTypeUserQuery, ""))

	_, err := idx.AddBatch(ctx, "doc-a", []ingestkernel.TextInput{{Text: "relevant", Vector: []float32{1, 0, 0, 0}}})
	require.NoError(t, err)
	_, err = idx.AddBatch(ctx, ingestkernel.UserQuerySource, []ingestkernel.TextInput{{Text: "q", Vector: []float32{1, 0, 0, 0}}})
	require.NoError(t, err)

	results, err := idx.Search(ctx, []float32{1, 0, 0, 0}, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "relevant", results[0].Text)
}

func TestSearch_OrdersByAscendingDistance(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Create(ctx, "doc-a", ingestkernel.SourceTypeLocalTextFile, "A"))
	_, err := idx.AddBatch(ctx, "doc-a", []ingestkernel.TextInput{
		{Text: "far", Vector: []float32{0, 1}},
		{Text: "near", Vector: []float32{1, 0.01}},
		{Text: "exact", Vector: []float32{1, 0}},
	})
	require.NoError(t, err)

	results, err := idx.Search(ctx, []float32{1, 0}, nil, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "exact", results[0].Text)
	require.Equal(t, "far", results[2].Text)
	require.True(t, results[0].Distance <= results[1].Distance)
	require.True(t, results[1].Distance <= results[2].Distance)
}

func TestRelevantSources_RespectsDistanceThreshold(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Create(ctx, "close-doc", ingestkernel.SourceTypeLocalTextFile, ""))
	require.NoError(t, idx.Create(ctx, "far-doc", ingestkernel.SourceTypeLocalTextFile, ""))
	_, err := idx.AddBatch(ctx, "close-doc", []ingestkernel.TextInput{{Text: "a", Vector: []float32{1, 0}}})
	require.NoError(t, err)
	_, err = idx.AddBatch(ctx, "far-doc", []ingestkernel.TextInput{{Text: "b", Vector: []float32{0, 1}}})
	require.NoError(t, err)

	relevant, err := idx.RelevantSources(ctx, []float32{1, 0}, 10, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, relevant, 1)
	require.Equal(t, "close-doc", relevant[0].Source)
}

func TestAddBatch_UnknownSourceErrors(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)
	_, err := idx.AddBatch(ctx, "missing", []ingestkernel.TextInput{{Text: "x", Vector: []float32{1, 0, 0, 0}}})
	require.Error(t, err)
}

func TestSourceStatsByName_FiltersAcrossSources(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)
	require.NoError(t, idx.Create(ctx, "a1", ingestkernel.SourceTypeLocalTextFile, "group"))
	require.NoError(t, idx.Create(ctx, "a2", ingestkernel.SourceTypeLocalTextFile, "group"))
	require.NoError(t, idx.Create(ctx, "b1", ingestkernel.SourceTypeLocalTextFile, "other"))

	stats, err := idx.SourceStatsByName(ctx, "group")
	require.NoError(t, err)
	require.Len(t, stats, 2)
}

func TestSetState_UpdatesCatalog(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)
	require.NoError(t, idx.Create(ctx, "a", ingestkernel.SourceTypeLocalTextFile, ""))
	require.NoError(t, idx.SetState(ctx, "a", ingestkernel.StateCompleted))
	stats, err := idx.SourceStats(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, ingestkernel.StateCompleted, stats.State)
}
