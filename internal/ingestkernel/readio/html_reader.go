package readio

import (
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"brag/internal/ingestkernel"
)

// HTMLReader extracts text nodes from an HTML document while tracking each
// node's character position in the original (tag-inclusive) markup, using
// golang.org/x/net/html's tokenizer instead of a DOM tree: a token's byte
// offset is the running sum of the raw lengths of the tokens before it, so
// there is no need to re-search the source for each text node the way a
// tree-based parser would.
type HTMLReader struct {
	FilePath     string
	ChunkSizeMax int
}

func NewHTMLReader(filePath string) *HTMLReader {
	return &HTMLReader{FilePath: filePath, ChunkSizeMax: DefaultChunkCharacterLimit}
}

func (r *HTMLReader) SourceType() ingestkernel.SourceType {
	return ingestkernel.SourceTypeLocalHTMLFile
}

func (r *HTMLReader) Read() (string, error) {
	data, err := os.ReadFile(r.FilePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func (r *HTMLReader) ReadIter(yield func(ingestkernel.TextChunk) bool) error {
	raw, err := r.Read()
	if err != nil {
		return err
	}

	limit := r.ChunkSizeMax
	if limit <= 0 {
		limit = DefaultChunkCharacterLimit
	}

	z := html.NewTokenizer(strings.NewReader(raw))
	// offset is the current token's byte position in raw: the sum of
	// len(z.Raw()) over every earlier token, since the tokenizer consumes
	// the input contiguously and does not expose offsets itself.
	offset := 0
	skipDepth := 0 // inside <script> or <style>

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skipDepth++
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				text := whitespaceRe.ReplaceAllString(strings.TrimSpace(string(raw)), " ")
				if text != "" {
					chunk := ingestkernel.TextChunk{
						StartIndex: offset,
						EndIndex:   offset + len(raw),
						Text:       text,
					}
					for _, piece := range splitTextChunk(limit, chunk) {
						if !yield(piece) {
							return nil
						}
					}
				}
			}
		}
		offset += len(raw)
	}
	return nil
}
