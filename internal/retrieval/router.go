// Package retrieval routes a question to the fragments used as its context.
package retrieval

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/index"
	"github.com/sells-group/report-qa/internal/model"
)

// ExtractQueryCompanies returns every registry name that appears literally
// in the question text before its first '?', in registry order.
func ExtractQueryCompanies(question string, registry []string) []string {
	prefix := question
	if i := strings.IndexByte(question, '?'); i >= 0 {
		prefix = question[:i]
	}
	var out []string
	for _, name := range registry {
		if name != "" && strings.Contains(prefix, name) {
			out = append(out, name)
		}
	}
	return out
}

// Router selects context fragments for a question.
type Router struct {
	searcher index.Searcher
	cfg      config.RetrievalConfig
}

// NewRouter creates a Router. Zero sizes fall back to 20/10/8.
func NewRouter(searcher index.Searcher, cfg config.RetrievalConfig) *Router {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 20
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.FallbackK <= 0 {
		cfg.FallbackK = 8
	}
	return &Router{searcher: searcher, cfg: cfg}
}

// Retrieve searches a candidate pool for question and keeps the candidates
// tagged with any of companies. When none match, the head of the
// unfiltered pool is returned instead.
func (r *Router) Retrieve(ctx context.Context, question string, companies []string) ([]model.Fragment, error) {
	pool, err := r.searcher.Search(ctx, question, r.cfg.PoolSize)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: search")
	}

	var filtered []model.Fragment
	var rest []model.Fragment
	for _, c := range pool {
		if c.HasAnyOrganization(companies) {
			filtered = append(filtered, c.Fragment)
		} else {
			rest = append(rest, c.Fragment)
		}
	}

	if len(filtered) == 0 {
		out := make([]model.Fragment, 0, min(r.cfg.FallbackK, len(pool)))
		for _, c := range pool[:min(r.cfg.FallbackK, len(pool))] {
			out = append(out, c.Fragment)
		}
		zap.L().Debug("retrieval: no company match, using unfiltered pool",
			zap.Strings("companies", companies),
			zap.Int("pool", len(pool)),
			zap.Int("returned", len(out)),
		)
		return out, nil
	}

	if len(filtered) > r.cfg.TopK {
		filtered = filtered[:r.cfg.TopK]
	}
	if r.cfg.Backfill && len(filtered) < r.cfg.TopK {
		filtered = append(filtered, rest[:min(r.cfg.TopK-len(filtered), len(rest))]...)
	}
	zap.L().Debug("retrieval: filtered by company",
		zap.Strings("companies", companies),
		zap.Int("pool", len(pool)),
		zap.Int("returned", len(filtered)),
	)
	return filtered, nil
}
