package readio

import (
	"testing"

	"brag/internal/ingestkernel"

	"github.com/stretchr/testify/require"
)

func TestHTMLReader_ExtractsTextExcludingScriptAndStyle(t *testing.T) {
	content := `<html><head><style>.x{color:red}</style></head>` +
		`<body><script>var x = 1;</script><h1>Title</h1><p>Hello world</p></body></html>`
	path := writeTempFile(t, "doc.html", content)
	r := NewHTMLReader(path)

	var texts []string
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		texts = append(texts, c.Text)
		return true
	}))

	require.Equal(t, []string{"Title", "Hello world"}, texts)
}

func TestHTMLReader_PositionsAreWithinSourceBounds(t *testing.T) {
	content := `<p>Some text here</p>`
	path := writeTempFile(t, "doc.html", content)
	r := NewHTMLReader(path)

	var chunks []ingestkernel.TextChunk
	require.NoError(t, r.ReadIter(func(c ingestkernel.TextChunk) bool {
		chunks = append(chunks, c)
		return true
	}))

	require.Len(t, chunks, 1)
	require.GreaterOrEqual(t, chunks[0].StartIndex, 0)
	require.LessOrEqual(t, chunks[0].EndIndex, len(content))
	require.Equal(t, "Some text here", chunks[0].Text)
}

func TestHTMLReader_SourceType(t *testing.T) {
	r := NewHTMLReader("x.html")
	require.Equal(t, ingestkernel.SourceTypeLocalHTMLFile, r.SourceType())
}
