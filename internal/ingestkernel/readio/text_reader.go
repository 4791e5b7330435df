package readio

import (
	"bufio"
	"os"
	"strings"

	"brag/internal/ingestkernel"
)

// TextReader reads a plain-text file line by line, yielding one TextChunk
// per non-blank line (further split if the line exceeds ChunkSizeMax).
type TextReader struct {
	FilePath     string
	ChunkSizeMax int
}

// NewTextReader constructs a TextReader with the default chunk size limit.
func NewTextReader(filePath string) *TextReader {
	return &TextReader{FilePath: filePath, ChunkSizeMax: DefaultChunkCharacterLimit}
}

func (r *TextReader) SourceType() ingestkernel.SourceType {
	return ingestkernel.SourceTypeLocalTextFile
}

func (r *TextReader) Read() (string, error) {
	data, err := os.ReadFile(r.FilePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *TextReader) ReadIter(yield func(ingestkernel.TextChunk) bool) error {
	f, err := os.Open(r.FilePath)
	if err != nil {
		return err
	}
	defer f.Close()

	limit := r.ChunkSizeMax
	if limit <= 0 {
		limit = DefaultChunkCharacterLimit
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	charIndex := 0
	for scanner.Scan() {
		rawLine := scanner.Text()
		// bufio.Scanner strips the trailing newline; account for it so
		// charIndex still tracks the byte offset in the original file.
		lineWithNewline := rawLine + "\n"

		if strings.TrimSpace(rawLine) != "" {
			chunk := ingestkernel.TextChunk{
				StartIndex: charIndex,
				EndIndex:   charIndex + len(rawLine),
				Text:       rawLine,
			}
			for _, piece := range splitTextChunk(limit, chunk) {
				if !yield(piece) {
					return scanner.Err()
				}
			}
		}
		charIndex += len(lineWithNewline)
	}
	return scanner.Err()
}
