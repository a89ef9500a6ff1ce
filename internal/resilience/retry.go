// Package resilience retries transient failures of indexing-time API calls.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior with exponential backoff and jitter.
type Policy struct {
	// Attempts is the total number of tries. 1 disables retries.
	Attempts int
	// Backoff is the delay before the first retry.
	Backoff time.Duration
	// MaxBackoff caps the delay.
	MaxBackoff time.Duration
	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the policy used for embedding and OCR requests.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 20 * time.Second,
	}
}

// Retry runs fn until it succeeds, returns a non-transient error, runs out
// of attempts, or ctx is done.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == p.Attempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(backoff(attempt, p))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// backoff doubles the base delay per attempt with ±25% jitter.
func backoff(attempt int, p Policy) time.Duration {
	d := float64(p.Backoff) * math.Pow(2, float64(attempt))
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	d += (rand.Float64()*2 - 1) * d * 0.25
	return time.Duration(max(d, 0))
}

// LogRetry returns an OnRetry callback that logs each attempt.
func LogRetry(operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying request",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
