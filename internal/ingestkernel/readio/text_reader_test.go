package readio

import (
	"os"
	"path/filepath"
	"testing"

	"brag/internal/ingestkernel"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextReader_ReadIter_SkipsBlankLines(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "first line\n\nsecond line\n")
	r := NewTextReader(path)

	var chunks []ingestkernel.TextChunk
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		chunks = append(chunks, c)
		return true
	}))

	require.Len(t, chunks, 2)
	require.Equal(t, "first line", chunks[0].Text)
	require.Equal(t, 0, chunks[0].StartIndex)
	require.Equal(t, "second line", chunks[1].Text)
}

func TestTextReader_ReadIter_SplitsLongLines(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "the quick brown fox jumps "
	}
	path := writeTempFile(t, "long.txt", long+"\n")
	r := &TextReader{FilePath: path, ChunkSizeMax: 100}

	var chunks []ingestkernel.TextChunk
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		chunks = append(chunks, c)
		return true
	}))

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Text), 100)
	}
}

func TestTextReader_ReadIter_EarlyStop(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "a\nb\nc\n")
	r := NewTextReader(path)

	var seen int
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		seen++
		return seen < 2
	}))
	require.Equal(t, 2, seen)
}

func TestTextReader_Read_ReturnsWholeFile(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "hello world")
	r := NewTextReader(path)
	text, err := r.Read()
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestTextReader_SourceType(t *testing.T) {
	r := NewTextReader("x.txt")
	require.Equal(t, ingestkernel.SourceTypeLocalTextFile, r.SourceType())
}
