package readio

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// extensionReaders maps lowercased file extensions to a constructor,
// mirroring ReaderFactory.EXTENSION_READERS.
var extensionReaders = map[string]func(path string, chunkSizeMax int) Reader{
	".pdf": func(p string, n int) Reader { return &PDFReader{FilePath: p, ChunkSizeMax: n} },
	".docx": func(p string, n int) Reader { return &DOCXReader{FilePath: p, ChunkSizeMax: n} },
	".pptx": func(p string, n int) Reader { return &PPTXReader{FilePath: p, ChunkSizeMax: n} },
	".ppsx": func(p string, n int) Reader { return &PPTXReader{FilePath: p, ChunkSizeMax: n} },
	".pptm": func(p string, n int) Reader { return &PPTXReader{FilePath: p, ChunkSizeMax: n} },
	".txt":  func(p string, n int) Reader { return &TextReader{FilePath: p, ChunkSizeMax: n} },
	".html": func(p string, n int) Reader { return &HTMLReader{FilePath: p, ChunkSizeMax: n} },
	".htm":  func(p string, n int) Reader { return &HTMLReader{FilePath: p, ChunkSizeMax: n} },
}

// NewReader picks a Reader for filePath by extension, defaulting to
// TextReader (with a warning) for unrecognized extensions, matching
// ReaderFactory.create_reader.
func NewReader(filePath string, chunkSizeMax int) Reader {
	if chunkSizeMax <= 0 {
		chunkSizeMax = DefaultChunkCharacterLimit
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if ctor, ok := extensionReaders[ext]; ok {
		return ctor(filePath, chunkSizeMax)
	}
	log.Warn().Str("file", filePath).Msg("no reader registered for extension, defaulting to text reader")
	return &TextReader{FilePath: filePath, ChunkSizeMax: chunkSizeMax}
}

// SupportedExtensions lists every extension with a dedicated reader.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensionReaders))
	for ext := range extensionReaders {
		out = append(out, ext)
	}
	return out
}

// IsSupported reports whether filePath's extension has a dedicated reader.
func IsSupported(filePath string) bool {
	_, ok := extensionReaders[strings.ToLower(filepath.Ext(filePath))]
	return ok
}
