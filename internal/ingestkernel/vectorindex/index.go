package vectorindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"brag/internal/ingestkernel"
)

// sourceRecord is the catalog row for one registered source, analogous to
// a row in the reference implementation's sqlite "collections" table.
type sourceRecord struct {
	sourceType ingestkernel.SourceType
	sourceName string
	state      ingestkernel.CollectionState
	ids        []string
}

// baseIndex implements Index over any VectorStore: it keeps the relational
// bookkeeping (source -> state/name/ids, id -> TextInput) in process and
// delegates only the vector similarity search to store. This mirrors the
// reference architecture's split between a relational catalog (sqlite) and
// an ANN backend for the vectors themselves.
type baseIndex struct {
	mu      sync.RWMutex
	store   VectorStore
	sources map[string]*sourceRecord
	entries map[string]ingestkernel.TextInput
}

func newBaseIndex(store VectorStore) *baseIndex {
	return &baseIndex{
		store:   store,
		sources: make(map[string]*sourceRecord),
		entries: make(map[string]ingestkernel.TextInput),
	}
}

// NewMemoryIndex constructs an Index backed by an in-process linear-scan
// vector store, used in tests and offline development.
func NewMemoryIndex(dim int) Index {
	return newBaseIndex(NewMemoryStore(dim))
}

// NewQdrantIndex constructs an Index backed by Qdrant.
func NewQdrantIndex(dsn, collection string, dim int) (Index, error) {
	store, err := NewQdrantStore(dsn, collection, dim)
	if err != nil {
		return nil, err
	}
	return newBaseIndex(store), nil
}

func (b *baseIndex) Create(ctx context.Context, source string, sourceType ingestkernel.SourceType, sourceName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.sources[source]; ok {
		for _, id := range existing.ids {
			delete(b.entries, id)
		}
		if _, err := b.store.DeleteByFilter(ctx, map[string]string{"source": source}); err != nil {
			return err
		}
	}
	b.sources[source] = &sourceRecord{
		sourceType: sourceType,
		sourceName: sourceName,
		state:      ingestkernel.StateProcessing,
	}
	return nil
}

func (b *baseIndex) Exists(_ context.Context, source string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.sources[source]
	return ok, nil
}

func (b *baseIndex) Delete(ctx context.Context, source string) (bool, error) {
	b.mu.Lock()
	rec, ok := b.sources[source]
	if !ok {
		b.mu.Unlock()
		return false, nil
	}
	ids := append([]string(nil), rec.ids...)
	delete(b.sources, source)
	for _, id := range ids {
		delete(b.entries, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		if err := b.store.Delete(ctx, id); err != nil {
			return true, fmt.Errorf("delete vectors for %q: %w", source, err)
		}
	}
	return true, nil
}

func (b *baseIndex) DeleteByName(ctx context.Context, sourceName string) (bool, error) {
	b.mu.RLock()
	var matches []string
	for source, rec := range b.sources {
		if rec.sourceName == sourceName {
			matches = append(matches, source)
		}
	}
	b.mu.RUnlock()

	if len(matches) == 0 {
		return false, nil
	}
	for _, source := range matches {
		if _, err := b.Delete(ctx, source); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (b *baseIndex) SetState(_ context.Context, source string, state ingestkernel.CollectionState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.sources[source]
	if !ok {
		return fmt.Errorf("vectorindex: unknown source %q", source)
	}
	rec.state = state
	return nil
}

func (b *baseIndex) AddBatch(ctx context.Context, source string, inputs []ingestkernel.TextInput) ([]string, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	b.mu.Lock()
	rec, ok := b.sources[source]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("vectorindex: unknown source %q", source)
	}
	b.mu.Unlock()

	ids := make([]string, len(inputs))
	for i, in := range inputs {
		// Use the TextInput's own metadata id as the storage key when
		// present, mirroring add_batch's id=text_input._meta.get("id", uuid4())
		// so GetByID can look an entry up by the id its producer assigned
		// (e.g. a query chunk id) instead of an opaque storage row id.
		id := in.ID()
		if id == "" {
			id = uuid.NewString()
		}
		ids[i] = id

		meta := make(map[string]string, len(in.Metadata)+1)
		for k, v := range in.Metadata {
			if s, ok := v.(string); ok {
				meta[k] = s
			}
		}
		meta["source"] = source
		meta["text"] = in.Text

		if err := b.store.Upsert(ctx, id, in.Vector, meta); err != nil {
			return ids[:i], fmt.Errorf("upsert vector %d/%d for %q: %w", i+1, len(inputs), source, err)
		}

		b.mu.Lock()
		rec.ids = append(rec.ids, id)
		stored := in
		stored.SourceID = source
		b.entries[id] = stored
		b.mu.Unlock()
	}
	return ids, nil
}

func (b *baseIndex) GetByID(_ context.Context, source, id string) (*ingestkernel.TextInput, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.sources[source]; !ok {
		return nil, false, nil
	}
	in, ok := b.entries[id]
	if !ok || in.SourceID != source {
		return nil, false, nil
	}
	return &in, true, nil
}

func (b *baseIndex) ListSources(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.sources))
	for source := range b.sources {
		if source == ingestkernel.UserQuerySource {
			continue
		}
		out = append(out, source)
	}
	return out, nil
}

func (b *baseIndex) statsLocked(source string, rec *sourceRecord) DataSourceStats {
	return DataSourceStats{
		SourceName:  rec.sourceName,
		SourcePath:  source,
		SourceType:  rec.sourceType,
		State:       rec.state,
		VectorCount: len(rec.ids),
		Dimension:   b.store.Dimension(),
	}
}

func (b *baseIndex) SourceStats(_ context.Context, source string) (DataSourceStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.sources[source]
	if !ok {
		return DataSourceStats{}, fmt.Errorf("vectorindex: unknown source %q", source)
	}
	return b.statsLocked(source, rec), nil
}

func (b *baseIndex) AllSourceStats(_ context.Context) (map[string]DataSourceStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]DataSourceStats, len(b.sources))
	for source, rec := range b.sources {
		out[source] = b.statsLocked(source, rec)
	}
	return out, nil
}

// SourceStatsByName filters the catalog in process rather than building a
// SQL IN (...) clause with one placeholder for many values — the bug the
// reference sqlite layer has (a single "?" bound to a whole list). Since
// this catalog is in-memory, there is no query string to get wrong.
func (b *baseIndex) SourceStatsByName(_ context.Context, sourceName string) ([]DataSourceStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []DataSourceStats
	for source, rec := range b.sources {
		if rec.sourceName == sourceName {
			out = append(out, b.statsLocked(source, rec))
		}
	}
	return out, nil
}

func (b *baseIndex) RelevantSources(ctx context.Context, queryVec []float32, limit int, distanceThreshold float64, sources []string) ([]RelevantCollection, error) {
	candidates, err := b.candidateSources(sources)
	if err != nil {
		return nil, err
	}

	var out []RelevantCollection
	for _, source := range candidates {
		hits, err := b.store.SimilaritySearch(ctx, queryVec, 50, map[string]string{"source": source})
		if err != nil {
			return nil, fmt.Errorf("relevant sources: search %q: %w", source, err)
		}
		if len(hits) == 0 {
			continue
		}
		minDist := hits[0].Distance
		var sum float64
		var count int
		for _, h := range hits {
			if h.Distance > distanceThreshold {
				continue
			}
			if h.Distance < minDist {
				minDist = h.Distance
			}
			sum += h.Distance
			count++
		}
		if count == 0 {
			continue
		}
		out = append(out, RelevantCollection{
			Source:      source,
			MinDistance: minDist,
			AvgDistance: sum / float64(count),
			Count:       count,
		})
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].MinDistance < out[j-1].MinDistance; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *baseIndex) Search(ctx context.Context, queryVec []float32, sources []string, k int) ([]TextInputWithDistance, error) {
	candidates, err := b.candidateSources(sources)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 20
	}

	var all []TextInputWithDistance
	for _, source := range candidates {
		hits, err := b.store.SimilaritySearch(ctx, queryVec, k, map[string]string{"source": source})
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", source, err)
		}
		for _, hit := range hits {
			b.mu.RLock()
			in, ok := b.entries[hit.ID]
			b.mu.RUnlock()
			if !ok {
				continue
			}
			all = append(all, TextInputWithDistance{TextInput: in, Distance: hit.Distance})
		}
	}

	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].Distance < all[j-1].Distance; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// candidateSources resolves sources to search: the explicit list if given,
// else every registered source except the reserved user-query pseudo
// source, which is excluded at the index level so query embeddings never
// surface as search results or relevant sources.
func (b *baseIndex) candidateSources(sources []string) ([]string, error) {
	if len(sources) > 0 {
		return sources, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.sources))
	for source := range b.sources {
		if source == ingestkernel.UserQuerySource {
			continue
		}
		out = append(out, source)
	}
	return out, nil
}
