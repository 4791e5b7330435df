// Package search implements query-time retrieval: embedding a user query
// through the same embedder queue the ingestion pipeline uses, waiting for
// those embeddings to land in the vector index, then searching and
// expanding the matching windows back into readable snippets.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brag/internal/ingestkernel"
	"brag/internal/ingestkernel/ingesterr"
	"brag/internal/ingestkernel/queue"
	"brag/internal/ingestkernel/readio"
	"brag/internal/ingestkernel/vectorindex"
)

// Tunables mirroring server/constants.py's SEARCH_* Constants.
const (
	ChunkCharacterLimit        = 1000
	ChunksLimit                = 30
	ContextExtensionCharacters = 1000
	ProcessingTimeout          = 10 * time.Second
	ResultLimit                = 5
	DeepSearchResultLimit      = 30
	MaxSourcesInDeepSearch     = 3

	// DefaultRelevantSourcesDistanceThreshold mirrors DataSourceMap's
	// get_relevant_sources default distance_threshold of 2.0.
	DefaultRelevantSourcesDistanceThreshold = 2.0
)

// pollStart/pollMax/pollMultiplier mirror _wait_for_embeddings's adaptive
// polling: 10ms initial interval, growing by 1.2x each iteration, capped
// at 500ms.
const (
	pollStart      = 10 * time.Millisecond
	pollMax        = 500 * time.Millisecond
	pollMultiplier = 1.2
)

// Result is one expanded, scored match, mirroring SearchResult.
type Result struct {
	Text       string
	Source     string
	SourceType ingestkernel.SourceType
	StartIndex int
	EndIndex   int
	Distance   float64
}

// Engine runs queries against an Index, submitting query embeddings
// through the same embedderReadQueue the ingestion pipeline's EmbedderWorker
// drains, mirroring the reference's module-level search()/most_relevant_sources().
type Engine struct {
	embedderReadQueue *queue.Queue[ingestkernel.TextInput]
	index             vectorindex.Index

	cacheMu sync.RWMutex
	cache   map[string]string
}

// New constructs a search Engine over queue and index.
func New(embedderReadQueue *queue.Queue[ingestkernel.TextInput], index vectorindex.Index) *Engine {
	return &Engine{
		embedderReadQueue: embedderReadQueue,
		index:             index,
		cache:             make(map[string]string),
	}
}

// cutLineIntoChunks splits line into TextChunks no longer than
// ChunkCharacterLimit, preferring word boundaries, mirroring
// _cut_line_into_chunks. Unlike readio.splitTextChunk, a blank line yields
// no chunks rather than one empty chunk.
func cutLineIntoChunks(line string, baseIndex int) []ingestkernel.TextChunk {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	lineLen := len(line)
	if lineLen <= ChunkCharacterLimit {
		text := strings.TrimSpace(line)
		if text == "" {
			return nil
		}
		return []ingestkernel.TextChunk{{StartIndex: baseIndex, EndIndex: baseIndex + lineLen, Text: text}}
	}

	var chunks []ingestkernel.TextChunk
	pos := 0
	for pos < lineLen {
		end := pos + ChunkCharacterLimit
		if end > lineLen {
			end = lineLen
		}
		if end < lineLen {
			if lastSpace := strings.LastIndex(line[pos:end], " "); lastSpace > 0 {
				end = pos + lastSpace
			}
		}
		text := strings.TrimSpace(line[pos:end])
		if text != "" {
			chunks = append(chunks, ingestkernel.TextChunk{StartIndex: baseIndex + pos, EndIndex: baseIndex + end, Text: text})
		}
		pos = end
		for pos < lineLen && isSpace(line[pos]) {
			pos++
		}
	}
	return chunks
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// embedUserQuery splits query into per-line chunks (up to ChunksLimit
// query ids) and submits them to the embedder queue tagged with
// ingestkernel.SourceTypeUserQuery/UserQuerySource, mirroring
// _embed_user_query.
func (e *Engine) embedUserQuery(query string) []string {
	log.Info().Str("query", query).Msg("embedding user query")
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var queryIDs []string
	var inputs []ingestkernel.TextInput

	for _, line := range strings.Split(query, "\n") {
		if len(queryIDs) >= ChunksLimit {
			break
		}
		chunks := cutLineIntoChunks(line, 0)
		if len(chunks) == 0 {
			continue
		}
		queryID := uuid.NewString()
		queryIDs = append(queryIDs, queryID)
		for _, chunk := range chunks {
			meta := chunk.ToMetadata()
			meta["id"] = queryID
			meta["source"] = ingestkernel.UserQuerySource
			meta["source_type"] = ingestkernel.SourceTypeUserQuery
			inputs = append(inputs, ingestkernel.TextInput{
				Text:     chunk.Text,
				Metadata: meta,
				SourceID: queryID,
			})
		}
	}

	if err := e.embedderReadQueue.PutMany(inputs); err != nil {
		log.Error().Err(err).Msg("failed to submit query chunks for embedding")
	}
	log.Debug().Int("count", len(queryIDs)).Msg("submitted query chunks for embedding")
	return queryIDs
}

// waitForEmbeddings polls the index for every queryID's embedded TextInput
// under ingestkernel.UserQuerySource, sleeping pollStart initially and
// backing off by pollMultiplier each round up to pollMax, mirroring
// _wait_for_embeddings. It gives up after ProcessingTimeout.
func (e *Engine) waitForEmbeddings(ctx context.Context, queryIDs []string) bool {
	if len(queryIDs) == 0 {
		return true
	}
	deadline := time.Now().Add(ProcessingTimeout)
	interval := pollStart

	for time.Now().Before(deadline) {
		ready := 0
		for _, id := range queryIDs {
			if _, ok, _ := e.index.GetByID(ctx, ingestkernel.UserQuerySource, id); ok {
				ready++
			}
		}
		if ready == len(queryIDs) {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
		interval = time.Duration(float64(interval) * pollMultiplier)
		if interval > pollMax {
			interval = pollMax
		}
	}
	return false
}

// window is one merged, extended match span pending a file read.
type window struct {
	start    int
	end      int
	distance float64
}

// mergeWindows extends each hit by ContextExtensionCharacters on both
// sides, sorts by start offset, and merges overlapping spans. Unlike the
// reference's `max(current_end, end, min(current_distance, distance))` —
// which conflates an end-offset max with a distance min inside a single
// max() call, collapsing them onto one running value — this keeps end and
// distance as two independently updated running values, each a true
// min/max across every window folded into the merge.
func mergeWindows(hits []vectorindex.TextInputWithDistance) []window {
	if len(hits) == 0 {
		return nil
	}

	extended := make([]window, 0, len(hits))
	for _, h := range hits {
		start := h.TextInput.Metadata["start_index"]
		end := h.TextInput.Metadata["end_index"]
		s := toInt(start) - ContextExtensionCharacters
		if s < 0 {
			s = 0
		}
		ed := toInt(end) + ContextExtensionCharacters
		extended = append(extended, window{start: s, end: ed, distance: h.Distance})
	}

	sort.Slice(extended, func(i, j int) bool { return extended[i].start < extended[j].start })

	merged := []window{extended[0]}
	for _, w := range extended[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end {
			if w.end > last.end {
				last.end = w.end
			}
			if w.distance < last.distance {
				last.distance = w.distance
			}
		} else {
			merged = append(merged, w)
		}
	}
	return merged
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// getCachedFileContent reads filePath's full canonical text at most once per
// Search call and reuses it within that call: Search clears the Engine's
// cache map when it starts, so one query never sees content read by an
// earlier one.
func (e *Engine) getCachedFileContent(filePath string) (string, error) {
	e.cacheMu.RLock()
	content, ok := e.cache[filePath]
	e.cacheMu.RUnlock()
	if ok {
		return content, nil
	}

	reader := readio.NewReader(filePath, readio.DefaultChunkCharacterLimit)
	content, err := reader.Read()
	if err != nil {
		return "", err
	}

	e.cacheMu.Lock()
	e.cache[filePath] = content
	e.cacheMu.Unlock()
	return content, nil
}

// readExtendedFileContent slices filePath's cached content to [start, end),
// clamped to bounds, mirroring _read_extended_file_content.
func (e *Engine) readExtendedFileContent(filePath, source string, sourceType ingestkernel.SourceType, w window) *Result {
	content, err := e.getCachedFileContent(filePath)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("failed to read file for extended search result")
		return nil
	}

	start := w.start
	if start < 0 {
		start = 0
	}
	end := w.end
	if end > len(content) {
		end = len(content)
	}
	if start >= end {
		return nil
	}

	return &Result{
		Text:       content[start:end],
		Source:     source,
		SourceType: sourceType,
		StartIndex: start,
		EndIndex:   end,
		Distance:   w.distance,
	}
}

// isTranscribedSource reports whether sourceType's canonical text lives in
// a transcript file rather than at the source path itself.
func isTranscribedSource(t ingestkernel.SourceType) bool {
	return t == ingestkernel.SourceTypeYouTubeTranscript || t == ingestkernel.SourceTypeLocalAudioFile
}

// searchVectorInDataSource groups raw nearest-neighbor hits by source,
// resolves each source's backing file (the transcript file for audio/
// YouTube sources), merges overlapping extended windows, and reads the
// expanded text, mirroring _search_vector_in_data_source.
func (e *Engine) searchVectorInDataSource(ctx context.Context, vector []float32, sources []string, topK int) ([]Result, error) {
	hits, err := e.index.Search(ctx, vector, sources, topK)
	if err != nil {
		return nil, ingesterr.Dependency("vector search failed", err)
	}
	log.Debug().Int("count", len(hits)).Msg("vector search returned intermediate results")

	bySource := make(map[string][]vectorindex.TextInputWithDistance)
	var order []string
	for _, h := range hits {
		src := h.TextInput.Source()
		if _, seen := bySource[src]; !seen {
			order = append(order, src)
		}
		bySource[src] = append(bySource[src], h)
	}

	var results []Result
	for _, source := range order {
		group := bySource[source]
		if len(group) == 0 {
			continue
		}
		sourceType := group[0].TextInput.SourceTypeOf()
		if sourceType == ingestkernel.SourceTypeUserQuery {
			log.Warn().Str("source", source).Msg("skipping user query source, should have been filtered at the query level")
			continue
		}

		filePath := source
		if isTranscribedSource(sourceType) {
			if p, ok := group[0].TextInput.Metadata["transcription_path"].(string); ok {
				filePath = p
			}
		}

		for _, w := range mergeWindows(group) {
			if r := e.readExtendedFileContent(filePath, source, sourceType, w); r != nil {
				results = append(results, *r)
			}
		}
	}
	return results, nil
}

// Search embeds query, waits for its embeddings, searches every requested
// source (or all sources if sources is empty) for up to limit+offset
// matches each, then applies the overall offset/limit and sorts by
// ascending distance, mirroring search().
func (e *Engine) Search(ctx context.Context, query string, sources []string, limit, offset int) ([]Result, error) {
	if limit <= 0 {
		limit = ResultLimit
	}

	e.cacheMu.Lock()
	e.cache = make(map[string]string)
	e.cacheMu.Unlock()

	queryIDs := e.embedUserQuery(query)
	if !e.waitForEmbeddings(ctx, queryIDs) {
		return nil, ingesterr.New(ingesterr.KindTimeout, "timeout waiting for query embeddings")
	}

	var results []Result
	for _, queryID := range queryIDs {
		input, ok, err := e.index.GetByID(ctx, ingestkernel.UserQuerySource, queryID)
		if err != nil {
			return nil, ingesterr.Dependency("failed to read query embedding", err)
		}
		if !ok || input.Vector == nil {
			log.Warn().Str("query_id", queryID).Msg("query embedding missing or unset, skipping")
			continue
		}

		found, err := e.searchVectorInDataSource(ctx, input.Vector, sources, limit+offset)
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
		log.Debug().Int("count", len(found)).Msg("found results for query chunk")
	}

	if offset > len(results) {
		results = nil
	} else {
		end := offset + limit
		if end > len(results) {
			end = len(results)
		}
		results = results[offset:end]
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results, nil
}

// DeepSearch runs Search against an explicit, bounded set of sources with
// a higher result limit, mirroring _deep_search.
func (e *Engine) DeepSearch(ctx context.Context, query string, sources []string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ingesterr.BadRequest("query cannot be empty")
	}
	if len(sources) > MaxSourcesInDeepSearch {
		return nil, ingesterr.BadRequest("too many sources: %d (max = %d)", len(sources), MaxSourcesInDeepSearch)
	}

	results, err := e.Search(ctx, query, sources, DeepSearchResultLimit, 0)
	if err != nil {
		return nil, err
	}
	if len(results) > DeepSearchResultLimit {
		results = results[:DeepSearchResultLimit]
	}
	return results, nil
}

// MostRelevantSources embeds query, waits for it, and asks the index for
// each chunk's most relevant sources, merging duplicate sources across
// query chunks by a count-weighted running average of their avg distance
// and the min of their min distance, mirroring most_relevant_sources.
func (e *Engine) MostRelevantSources(ctx context.Context, query string, sources []string, limit int) ([]vectorindex.RelevantCollection, error) {
	if limit <= 0 {
		limit = ResultLimit
	}

	queryIDs := e.embedUserQuery(query)
	if !e.waitForEmbeddings(ctx, queryIDs) {
		return nil, ingesterr.New(ingesterr.KindTimeout, "timeout waiting for query embeddings")
	}

	grouped := make(map[string]vectorindex.RelevantCollection)
	var order []string
	for _, queryID := range queryIDs {
		input, ok, err := e.index.GetByID(ctx, ingestkernel.UserQuerySource, queryID)
		if err != nil {
			return nil, ingesterr.Dependency("failed to read query embedding", err)
		}
		if !ok || input.Vector == nil {
			continue
		}

		relevant, err := e.index.RelevantSources(ctx, input.Vector, limit, DefaultRelevantSourcesDistanceThreshold, sources)
		if err != nil {
			return nil, ingesterr.Dependency("relevant-sources lookup failed", err)
		}

		for _, r := range relevant {
			existing, seen := grouped[r.Source]
			if !seen {
				grouped[r.Source] = r
				order = append(order, r.Source)
				continue
			}
			totalCount := existing.Count + r.Count
			existing.AvgDistance = (existing.AvgDistance*float64(existing.Count) + r.AvgDistance*float64(r.Count)) / float64(totalCount)
			existing.Count = totalCount
			if r.MinDistance < existing.MinDistance {
				existing.MinDistance = r.MinDistance
			}
			grouped[r.Source] = existing
		}
	}

	out := make([]vectorindex.RelevantCollection, 0, len(order))
	for _, source := range order {
		out = append(out, grouped[source])
	}
	return out, nil
}
