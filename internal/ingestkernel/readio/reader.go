// Package readio implements the Reader contract: every concrete reader
// streams TextChunks positioned against its own canonical text (the raw
// file for text/PDF/DOCX/PPTX, the raw HTML for HTMLReader), word-boundary
// aware, so downstream vector search can later map a chunk back to an
// extended snippet of the original source.
package readio

import (
	"strings"

	"brag/internal/ingestkernel"
)

// DefaultChunkCharacterLimit mirrors CHUNK_CHARACTER_LIMIT.
const DefaultChunkCharacterLimit = 1500

// Reader streams a source's text as positioned chunks.
type Reader interface {
	// Read returns the entire canonical text of the source.
	Read() (string, error)
	// ReadIter streams TextChunks in order, calling yield for each. It
	// returns early if yield returns false.
	ReadIter(yield func(ingestkernel.TextChunk) bool) error
	SourceType() ingestkernel.SourceType
}

// splitTextChunk splits chunk into pieces no longer than limit characters,
// preferring to break at the last space within the window so words are not
// cut mid-token. Positions are recalculated relative to chunk.StartIndex so
// callers can pass either a 1:1 text-to-source mapping (plain text/PDF/DOCX)
// or a proportional one (HTML, where tag markup inflates the source length
// relative to extracted text).
func splitTextChunk(limit int, chunk ingestkernel.TextChunk) []ingestkernel.TextChunk {
	text := chunk.Text
	if limit <= 0 || len(text) <= limit {
		return []ingestkernel.TextChunk{chunk}
	}

	var out []ingestkernel.TextChunk
	start := 0
	originalStart := chunk.StartIndex
	originalLen := chunk.EndIndex - chunk.StartIndex
	textLen := len(text)

	for start < textLen {
		end := start + limit
		if end > textLen {
			end = textLen
		}
		if end < textLen {
			if lastSpace := strings.LastIndex(text[start:end], " "); lastSpace > 0 {
				end = start + lastSpace
			}
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			startRatio := float64(start) / float64(textLen)
			endRatio := float64(end) / float64(textLen)
			out = append(out, ingestkernel.TextChunk{
				StartIndex: originalStart + int(startRatio*float64(originalLen)),
				EndIndex:   originalStart + int(endRatio*float64(originalLen)),
				Text:       piece,
			})
		}

		start = end
		for start < textLen && isSpace(text[start]) {
			start++
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
