package readio

import (
	"bytes"
	"compress/zlib"
	"io"
	"os"
	"regexp"
	"strings"

	"brag/internal/ingestkernel"
)

// PDFReader does minimal, dependency-free PDF text extraction: it locates
// each page's content stream, inflates it if Flate-compressed, and pulls
// the string operands of the Tj/TJ text-showing operators. This covers the
// common case of PDFs produced by standard writers; it does not attempt
// font-encoding remapping, so PDFs using nonstandard glyph encodings may
// yield garbled text. No PDF parsing library appears anywhere in the
// example corpus, so this stays on the standard library rather than
// reaching for an unverified dependency.
type PDFReader struct {
	FilePath     string
	ChunkSizeMax int
}

func NewPDFReader(filePath string) *PDFReader {
	return &PDFReader{FilePath: filePath, ChunkSizeMax: DefaultChunkCharacterLimit}
}

func (r *PDFReader) SourceType() ingestkernel.SourceType {
	return ingestkernel.SourceTypeLocalPDFFile
}

var pdfStreamRe = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)

// pdfTextRe matches Tj ("(...)") Tj and TJ ([(...) -200 (...)]) TJ operands.
var pdfTextRe = regexp.MustCompile(`\(((?:\\.|[^()\\])*)\)\s*T[Jj]`)
var pdfArrayTextRe = regexp.MustCompile(`\(((?:\\.|[^()\\])*)\)`)

func pdfUnescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '(', ')', '\\':
				b.WriteByte(s[i])
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// extractStreamText pulls text from one decompressed content stream in roughly
// left-to-right order, inserting a space between operands and a newline
// where the stream issues a line-break positioning operator (Td/TD/T*).
func extractStreamText(stream []byte) string {
	var out strings.Builder
	lines := strings.Split(string(stream), "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, "TJ") || strings.HasSuffix(trimmed, "Tj") {
			if strings.Contains(trimmed, "[") {
				for _, m := range pdfArrayTextRe.FindAllStringSubmatch(trimmed, -1) {
					out.WriteString(pdfUnescape(m[1]))
				}
			} else if m := pdfTextRe.FindStringSubmatch(trimmed); m != nil {
				out.WriteString(pdfUnescape(m[1]))
			}
			out.WriteString(" ")
		}
		if strings.HasSuffix(trimmed, "Td") || strings.HasSuffix(trimmed, "TD") || trimmed == "T*" {
			out.WriteString("\n")
		}
	}
	return out.String()
}

func inflateIfFlate(raw []byte) []byte {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return raw
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil || len(out) == 0 {
		return raw
	}
	return out
}

// pages splits the raw PDF bytes into per-page text by locating every
// stream...endstream block, decompressing it, and extracting its text
// operators. Pages are not reliably delimited this way (a PDF may pack
// multiple content streams per page or vice versa), so each extracted
// stream is treated as one "page" for chunking purposes — an approximation
// the reference implementation's page-oriented PyPDF2 reader does not need
// to make, but adequate for producing positioned, chunkable text.
func (r *PDFReader) pages() ([]string, error) {
	data, err := os.ReadFile(r.FilePath)
	if err != nil {
		return nil, err
	}
	var pages []string
	for _, m := range pdfStreamRe.FindAllSubmatch(data, -1) {
		decompressed := inflateIfFlate(m[1])
		text := extractStreamText(decompressed)
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

func (r *PDFReader) Read() (string, error) {
	pages, err := r.pages()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *PDFReader) ReadIter(yield func(ingestkernel.TextChunk) bool) error {
	pages, err := r.pages()
	if err != nil {
		return err
	}
	limit := r.ChunkSizeMax
	if limit <= 0 {
		limit = DefaultChunkCharacterLimit
	}

	charIndex := 0
	for i, pageText := range pages {
		withNewline := pageText
		if i < len(pages)-1 {
			withNewline += "\n"
		}
		trimmed := strings.TrimSpace(pageText)
		if trimmed != "" {
			chunk := ingestkernel.TextChunk{
				StartIndex: charIndex,
				EndIndex:   charIndex + len(pageText),
				Text:       trimmed,
			}
			for _, piece := range splitTextChunk(limit, chunk) {
				if !yield(piece) {
					return nil
				}
			}
		}
		charIndex += len(withNewline)
	}
	return nil
}

// pageCount reports how many stream blocks pages() finds, without
// chunking; nothing in the package calls it.
func (r *PDFReader) pageCount() (int, error) {
	pages, err := r.pages()
	return len(pages), err
}
