// Package embed maps text to dense vectors for similarity search.
package embed

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-qa/internal/config"
)

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// New builds the embedder selected by cfg.Provider, wrapped with batching,
// rate limiting and an in-memory cache.
func New(ctx context.Context, cfg config.EmbedConfig) (Embedder, error) {
	var base Embedder
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		base = NewOpenAI(cfg)
	case "gemini":
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, err
		}
		base = g
	case "hash":
		base = NewHash(cfg.Dimensions)
	default:
		return nil, eris.Errorf("embed: unknown provider %q (supported: openai, gemini, hash)", cfg.Provider)
	}

	batched := NewBatched(base, cfg.BatchSize, float64(cfg.RatePerSecond))
	ttl := time.Duration(cfg.CacheTTLMins) * time.Minute
	if ttl <= 0 {
		return batched, nil
	}
	return NewCached(batched, cfg.Provider+"/"+cfg.Model, ttl), nil
}

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
