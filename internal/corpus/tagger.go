package corpus

import (
	"strings"

	"golang.org/x/text/cases"
)

// Tagger finds registry organizations mentioned in fragment text.
// Matching is a case-insensitive substring scan.
type Tagger struct {
	names  []string
	folded []string
}

// NewTagger creates a Tagger over names. Matches are reported in the
// order names are given.
func NewTagger(names []string) *Tagger {
	fold := cases.Fold()
	t := &Tagger{names: make([]string, 0, len(names)), folded: make([]string, 0, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		t.names = append(t.names, n)
		t.folded = append(t.folded, fold.String(n))
	}
	return t
}

// Tag returns every organization contained in text.
func (t *Tagger) Tag(text string) []string {
	folded := cases.Fold().String(text)
	var out []string
	for i, f := range t.folded {
		if strings.Contains(folded, f) {
			out = append(out, t.names[i])
		}
	}
	return out
}
