package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

const defaultHashDimensions = 384

// Hash is a deterministic bag-of-words embedder using feature hashing. It
// needs no network and is meant for offline runs and tests.
type Hash struct {
	dims int
}

// NewHash creates a Hash embedder producing vectors of the given size.
func NewHash(dims int) *Hash {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &Hash{dims: dims}
}

// Embed implements Embedder.
func (h *Hash) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hash) vector(text string) []float32 {
	v := make([]float32, h.dims)
	tokens := strings.FieldsFunc(cases.Fold().String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		f := fnv.New64a()
		f.Write([]byte(tok)) //nolint:errcheck
		sum := f.Sum64()
		idx := int(sum % uint64(h.dims))
		// The top bit picks the sign so collisions tend to cancel.
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	Normalize(v)
	return v
}
