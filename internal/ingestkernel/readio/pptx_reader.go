package readio

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"

	"brag/internal/ingestkernel"
)

// PPTXReader extracts slide text from ppt/slides/slideN.xml inside the
// OOXML zip container, one TextChunk per slide. As with DOCXReader, this
// stays on archive/zip and encoding/xml since no PPTX parsing library
// appears in the example corpus.
type PPTXReader struct {
	FilePath     string
	ChunkSizeMax int
}

func NewPPTXReader(filePath string) *PPTXReader {
	return &PPTXReader{FilePath: filePath, ChunkSizeMax: DefaultChunkCharacterLimit}
}

func (r *PPTXReader) SourceType() ingestkernel.SourceType {
	return ingestkernel.SourceTypeLocalPPTXFile
}

type pptxTextRun struct {
	Text string `xml:",chardata"`
}

type pptxSlide struct {
	Runs []pptxTextRun `xml:"cSld>spTree>sp>txBody>p>r>t"`
}

func slideNumber(name string) int {
	base := strings.TrimPrefix(name, "ppt/slides/slide")
	base = strings.TrimSuffix(base, ".xml")
	n, err := strconv.Atoi(base)
	if err != nil {
		return -1
	}
	return n
}

func (r *PPTXReader) slides() ([]string, error) {
	zr, err := zip.OpenReader(r.FilePath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	type slideFile struct {
		num int
		f   *zip.File
	}
	var files []slideFile
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			if n := slideNumber(f.Name); n >= 0 {
				files = append(files, slideFile{num: n, f: f})
			}
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })

	out := make([]string, 0, len(files))
	for _, sf := range files {
		rc, err := sf.f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}

		var slide pptxSlide
		if err := xml.Unmarshal(data, &slide); err != nil {
			return nil, err
		}
		var b strings.Builder
		for i, run := range slide.Runs {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(run.Text)
		}
		out = append(out, b.String())
	}
	return out, nil
}

func (r *PPTXReader) Read() (string, error) {
	slides, err := r.slides()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range slides {
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *PPTXReader) ReadIter(yield func(ingestkernel.TextChunk) bool) error {
	slides, err := r.slides()
	if err != nil {
		return err
	}
	limit := r.ChunkSizeMax
	if limit <= 0 {
		limit = DefaultChunkCharacterLimit
	}

	charIndex := 0
	for _, slideText := range slides {
		withNewline := slideText + "\n"
		if strings.TrimSpace(slideText) != "" {
			chunk := ingestkernel.TextChunk{
				StartIndex: charIndex,
				EndIndex:   charIndex + len(withNewline),
				Text:       strings.TrimSpace(slideText),
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
