package readio

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"brag/internal/ingestkernel"
)

// DOCXReader extracts paragraph text from word/document.xml inside the
// OOXML zip container. Like the reference python-docx-based reader, table
// cell text and headers/footers are not traversed — only body paragraphs.
// No DOCX parsing library appears in the example corpus, so this uses only
// archive/zip and encoding/xml from the standard library.
type DOCXReader struct {
	FilePath     string
	ChunkSizeMax int
}

func NewDOCXReader(filePath string) *DOCXReader {
	return &DOCXReader{FilePath: filePath, ChunkSizeMax: DefaultChunkCharacterLimit}
}

func (r *DOCXReader) SourceType() ingestkernel.SourceType {
	return ingestkernel.SourceTypeLocalDOCXFile
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"body>p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

func (p docxParagraph) text() string {
	var b strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Text {
			b.WriteString(t)
		}
	}
	return b.String()
}

func (r *DOCXReader) paragraphs() ([]string, error) {
	zr, err := zip.OpenReader(r.FilePath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return nil, err
			}
			break
		}
	}
	if docXML == nil {
		return nil, nil
	}
	defer docXML.Close()

	var body docxBody
	if err := xml.NewDecoder(docXML).Decode(&body); err != nil {
		return nil, err
	}

	out := make([]string, len(body.Paragraphs))
	for i, p := range body.Paragraphs {
		out[i] = p.text()
	}
	return out, nil
}

func (r *DOCXReader) Read() (string, error) {
	paragraphs, err := r.paragraphs()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range paragraphs {
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *DOCXReader) ReadIter(yield func(ingestkernel.TextChunk) bool) error {
	paragraphs, err := r.paragraphs()
	if err != nil {
		return err
	}
	limit := r.ChunkSizeMax
	if limit <= 0 {
		limit = DefaultChunkCharacterLimit
	}

	charIndex := 0
	for _, paragraphText := range paragraphs {
		withNewline := paragraphText + "\n"
		if strings.TrimSpace(paragraphText) != "" {
			chunk := ingestkernel.TextChunk{
				StartIndex: charIndex,
				EndIndex:   charIndex + len(withNewline),
				Text:       strings.TrimSpace(paragraphText),
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
