// Package ingestkernel holds the shared data model for the ingestion/search
// pipeline kernel: chunks in flight, source types, and ingestion phases.
package ingestkernel

import "strings"

// SourceType identifies which reader or provider produced a TextInput.
type SourceType string

const (
	SourceTypeLocalTextFile       SourceType = "LOCAL_TEXT_FILE"
	SourceTypeLocalPDFFile        SourceType = "LOCAL_PDF_FILE"
	SourceTypeLocalDOCXFile       SourceType = "LOCAL_DOCX_FILE"
	SourceTypeLocalPPTXFile       SourceType = "LOCAL_PPTX_FILE"
	SourceTypeLocalHTMLFile       SourceType = "LOCAL_HTML_FILE"
	SourceTypeYouTubeTranscript   SourceType = "YOUTUBE_TRANSCRIPTION"
	SourceTypeLocalAudioFile      SourceType = "LOCAL_AUDIO_FILE"
	SourceTypeUserQuery           SourceType = "user_query"
)

// UserQuerySource is the reserved collection name holding transient query
// embeddings. It is excluded from search results and source listings.
const UserQuerySource = "user-query"

// AudioExtensions lists the file extensions routed to the transcription path
// instead of the text chunker.
var AudioExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg"}

// IsAudioExtension reports whether path has one of the recognized audio
// extensions (case-insensitive).
func IsAudioExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range AudioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// TextChunk is a positioned window of text: half-open character offsets into
// the source's canonical text, plus the (possibly cleaned) text itself.
type TextChunk struct {
	StartIndex int
	EndIndex   int
	Text       string
}

// ToMetadata returns the chunk's position fields as a metadata fragment,
// mirroring TextChunk.to_dict() in the reference implementation.
func (c TextChunk) ToMetadata() map[string]any {
	return map[string]any{
		"start_index": c.StartIndex,
		"end_index":   c.EndIndex,
		"text":        c.Text,
	}
}

// TextInput is a chunk in flight through the embedder/storage pipeline.
// Vector is set exactly once, by the embedder worker.
type TextInput struct {
	Text     string
	Metadata map[string]any
	Vector   []float32
	// SourceID is the logical data-source identifier used for progress
	// accounting. It may differ from Metadata["source"] for the
	// user-query pseudo source, where it is the per-line query id.
	SourceID string
}

// Source returns the metadata "source" field, or "" if absent.
func (t TextInput) Source() string {
	if v, ok := t.Metadata["source"].(string); ok {
		return v
	}
	return ""
}

// SourceTypeOf returns the metadata "source_type" field.
func (t TextInput) SourceTypeOf() SourceType {
	if v, ok := t.Metadata["source_type"].(SourceType); ok {
		return v
	}
	return ""
}

// ID returns the metadata "id" field.
func (t TextInput) ID() string {
	if v, ok := t.Metadata["id"].(string); ok {
		return v
	}
	return ""
}

// TextBatch is a slice of TextInput with batch-level helpers used by the
// embedder worker to account progress per logical source.
type TextBatch struct {
	Inputs []TextInput
}

func (b TextBatch) Len() int { return len(b.Inputs) }

// CountBySourceID groups the batch by SourceID, mirroring the reference
// implementation's count_by_source_id().
func (b TextBatch) CountBySourceID() map[string]int {
	counts := make(map[string]int)
	for _, in := range b.Inputs {
		if in.SourceID == "" {
			continue
		}
		counts[in.SourceID]++
	}
	return counts
}

// Phase is a stage of ingestion, each with its own progress counter.
type Phase string

const (
	PhaseInitialization Phase = "initialization"
	PhaseDownloading    Phase = "downloading"
	PhaseTranscription  Phase = "transcription"
	PhaseEmbedding      Phase = "embedding"
	PhaseStoring        Phase = "storing"
)

// CollectionState is the lifecycle state of a registered data source.
type CollectionState string

const (
	StateProcessing CollectionState = "processing"
	StateCompleted  CollectionState = "completed"
	StateFailed     CollectionState = "failed"
	StateNotFound   CollectionState = "not_found"
)
