package embed

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/report-qa/internal/resilience"
)

// Batched splits large inputs into fixed-size requests, paces them with
// a token-bucket limiter and retries batches that fail transiently.
type Batched struct {
	next      Embedder
	batchSize int
	limiter   *rate.Limiter
	retry     resilience.Policy
}

// NewBatched wraps next. rps <= 0 disables rate limiting.
func NewBatched(next Embedder, batchSize int, rps float64) *Batched {
	if batchSize <= 0 {
		batchSize = 32
	}
	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.LogRetry("embed")
	b := &Batched{next: next, batchSize: batchSize, retry: retry}
	if rps > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
	return b
}

// wait blocks until the rate limiter allows one request, or ctx is cancelled.
func (b *Batched) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// Embed implements Embedder.
func (b *Batched) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		if err := b.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "embed: rate limit wait")
		}
		batch := texts[start:end]
		vecs, err := resilience.Retry(ctx, b.retry, func(ctx context.Context) ([][]float32, error) {
			return b.next.Embed(ctx, batch)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "embed: batch %d-%d", start, end)
		}
		out = append(out, vecs...)
		if len(texts) > b.batchSize {
			zap.L().Debug("embed: batch done", zap.Int("done", end), zap.Int("total", len(texts)))
		}
	}
	return out, nil
}
