package readio

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"brag/internal/ingestkernel"

	"github.com/stretchr/testify/require"
)

func writeTestPptx(t *testing.T, slides [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, runs := range slides {
		name := "ppt/slides/slide" + itoa(i+1) + ".xml"
		w, err := zw.Create(name)
		require.NoError(t, err)
		body := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody>`
		for _, run := range runs {
			body += `<a:p><a:r><a:t>` + run + `</a:t></a:r></a:p>`
		}
		body += `</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestPPTXReader_ExtractsSlidesInOrder(t *testing.T) {
	path := writeTestPptx(t, [][]string{{"Slide one"}, {"Slide", "two"}})
	r := NewPPTXReader(path)

	var texts []string
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		texts = append(texts, c.Text)
		return true
	}))
	require.Equal(t, []string{"Slide one", "Slide two"}, texts)
}

func TestPPTXReader_SourceType(t *testing.T) {
	r := NewPPTXReader("x.pptx")
	require.Equal(t, ingestkernel.SourceTypeLocalPPTXFile, r.SourceType())
}
