package readio

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"brag/internal/ingestkernel"

	"github.com/stretchr/testify/require"
)

func writeTestDocx(t *testing.T, paragraphs []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	body := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="ns"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return path
}

func TestDOCXReader_ExtractsParagraphs(t *testing.T) {
	path := writeTestDocx(t, []string{"First paragraph", "Second paragraph"})
	r := NewDOCXReader(path)

	var texts []string
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		texts = append(texts, c.Text)
		return true
	}))
	require.Equal(t, []string{"First paragraph", "Second paragraph"}, texts)
}

func TestDOCXReader_SkipsEmptyParagraphs(t *testing.T) {
	path := writeTestDocx(t, []string{"Text", "", "More text"})
	r := NewDOCXReader(path)

	var texts []string
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		texts = append(texts, c.Text)
		return true
	}))
	require.Equal(t, []string{"Text", "More text"}, texts)
}

func TestDOCXReader_SourceType(t *testing.T) {
	r := NewDOCXReader("x.docx")
	require.Equal(t, ingestkernel.SourceTypeLocalDOCXFile, r.SourceType())
}
