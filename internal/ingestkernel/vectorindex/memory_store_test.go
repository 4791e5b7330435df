package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryVectorStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	require.NoError(t, store.Upsert(ctx, "1", []float32{1, 0, 0}, map[string]string{"source": "a"}))
	require.NoError(t, store.Upsert(ctx, "2", []float32{0, 1, 0}, map[string]string{"source": "b"}))

	results, err := store.SimilaritySearch(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "1", results[0].ID)
	require.InDelta(t, 0, results[0].Distance, 0.001)
}

func TestMemoryVectorStore_FilterRestrictsResults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, "1", []float32{1, 0}, map[string]string{"source": "a"}))
	require.NoError(t, store.Upsert(ctx, "2", []float32{1, 0}, map[string]string{"source": "b"}))

	results, err := store.SimilaritySearch(ctx, []float32{1, 0}, 5, map[string]string{"source": "b"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "2", results[0].ID)
}

func TestMemoryVectorStore_DeleteByFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, "1", []float32{1, 0}, map[string]string{"source": "a"}))
	require.NoError(t, store.Upsert(ctx, "2", []float32{1, 0}, map[string]string{"source": "a"}))
	require.NoError(t, store.Upsert(ctx, "3", []float32{1, 0}, map[string]string{"source": "b"}))

	removed, err := store.DeleteByFilter(ctx, map[string]string{"source": "a"})
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	count, err := store.Count(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMemoryVectorStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, "1", []float32{1, 0}, nil))
	require.NoError(t, store.Delete(ctx, "1"))
	count, err := store.Count(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
