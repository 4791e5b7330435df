// Package vectorindex implements the vector index contract (DataSourceMap
// in the reference implementation): registering sources, storing their
// chunk vectors, k-NN search, and per-source statistics, adapted from the
// teacher's pluggable VectorStore interface (internal/persistence/databases).
package vectorindex

import (
	"context"

	"brag/internal/ingestkernel"
)

// VectorStore is the minimal pluggable vector backend, unchanged in shape
// from the teacher's databases.VectorStore: upsert/delete/similarity search
// keyed by opaque string IDs with string-valued metadata filters.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	// DeleteByFilter removes every point matching all of filter and
	// returns the count removed; used to drop a whole source's vectors
	// without tracking individual point IDs.
	DeleteByFilter(ctx context.Context, filter map[string]string) (int, error)
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error)
	Count(ctx context.Context, filter map[string]string) (int, error)
	Dimension() int
}

// VectorResult is a single nearest-neighbor hit. Distance is a distance: lower
// is more relevant, matching the reference implementation's "distance"
// semantics (not the teacher's higher-is-closer convention).
type VectorResult struct {
	ID       string
	Distance float64
	Metadata map[string]string
}

// DataSourceStats summarizes one registered source.
type DataSourceStats struct {
	SourceName  string
	SourcePath  string
	SourceType  ingestkernel.SourceType
	State       ingestkernel.CollectionState
	VectorCount int
	Dimension   int
}

// RelevantCollection summarizes one source's relevance to a query, used by
// get_relevant_sources / most-relevant-files search.
type RelevantCollection struct {
	Source      string
	MinDistance float64
	AvgDistance float64
	Count       int
}

// TextInputWithDistance pairs a stored chunk with its distance from a query
// vector, used by search/deep-search results.
type TextInputWithDistance struct {
	ingestkernel.TextInput
	Distance float64
}

// Index is the kernel's vector index contract: source lifecycle (the
// reference implementation's DataSourceMap) plus per-source storage (its
// EmbeddingStore), merged into one interface since every concrete backend
// in this package implements both facets together.
type Index interface {
	// Create registers source (idempotent: recreating an existing source
	// clears its prior vectors) and returns nothing since storage happens
	// through AddBatch.
	Create(ctx context.Context, source string, sourceType ingestkernel.SourceType, sourceName string) error
	Exists(ctx context.Context, source string) (bool, error)
	Delete(ctx context.Context, source string) (bool, error)
	DeleteByName(ctx context.Context, sourceName string) (bool, error)
	SetState(ctx context.Context, source string, state ingestkernel.CollectionState) error

	// AddBatch stores inputs under source, assigning and returning an ID
	// for each.
	AddBatch(ctx context.Context, source string, inputs []ingestkernel.TextInput) ([]string, error)
	GetByID(ctx context.Context, source, id string) (*ingestkernel.TextInput, bool, error)

	ListSources(ctx context.Context) ([]string, error)
	SourceStats(ctx context.Context, source string) (DataSourceStats, error)
	AllSourceStats(ctx context.Context) (map[string]DataSourceStats, error)
	SourceStatsByName(ctx context.Context, sourceName string) ([]DataSourceStats, error)

	// RelevantSources ranks sources by their closest-matching vectors to
	// queryVec, excluding ingestkernel.UserQuerySource at the index level
	// so query embeddings never show up as a "relevant source".
	RelevantSources(ctx context.Context, queryVec []float32, limit int, distanceThreshold float64, sources []string) ([]RelevantCollection, error)
	// Search returns up to k nearest neighbors across sources (or every
	// non-user-query source if sources is empty).
	Search(ctx context.Context, queryVec []float32, sources []string, k int) ([]TextInputWithDistance, error)
}
