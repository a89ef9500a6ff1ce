package embed

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
)

// Cached memoizes vectors per text in memory. Safe for concurrent use.
type Cached struct {
	next   Embedder
	prefix string
	cache  *gocache.Cache
}

// NewCached wraps next with a TTL cache. prefix namespaces the keys so that
// vectors from different models never mix.
func NewCached(next Embedder, prefix string, ttl time.Duration) *Cached {
	return &Cached{
		next:   next,
		prefix: prefix,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// Embed implements Embedder. Only cache misses reach the wrapped embedder.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.cache.Get(c.prefix + "\x00" + t); ok {
			out[i] = v.([]float32)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, eris.Errorf("embed: got %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.SetDefault(c.prefix+"\x00"+missTexts[j], vecs[j])
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.ItemCount() }
