// Package corpus builds the searchable fragment index from a directory of
// PDF reports.
package corpus

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/textsplitter"
)

// Span is one split fragment of a page and its byte offset in that page.
// Start is -1 when the fragment text could not be located.
type Span struct {
	Text  string
	Start int
}

// Splitter performs recursive character splitting with overlap.
type Splitter struct {
	inner   textsplitter.RecursiveCharacter
	overlap int
}

// NewSplitter creates a Splitter. Sizes are measured in characters.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		overlap: chunkOverlap,
	}
}

// Split cuts text into spans. Each span's offset is searched forward from
// the end of the previous span minus the overlap.
func (s *Splitter) Split(text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	chunks, err := s.inner.SplitText(text)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: split text")
	}

	// Overlap is counted in characters; offsets are bytes.
	back := s.overlap * utf8.UTFMax
	spans := make([]Span, 0, len(chunks))
	prevStart, prevLen := 0, 0
	for i, c := range chunks {
		from := 0
		if i > 0 {
			from = max(0, prevStart+prevLen-back)
		}
		start := -1
		if idx := strings.Index(text[from:], c); idx >= 0 {
			start = from + idx
			prevStart, prevLen = start, len(c)
		}
		spans = append(spans, Span{Text: c, Start: start})
	}
	return spans, nil
}
