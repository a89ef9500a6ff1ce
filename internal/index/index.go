// Package index provides similarity search over the stored fragment index.
package index

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/embed"
	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/internal/store"
)

// Searcher returns the k fragments most similar to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]model.ScoredFragment, error)
}

// Index is an immutable in-memory vector index. Safe for concurrent use
// when the embedder is.
type Index struct {
	fragments []store.IndexedFragment
	embedder  embed.Embedder
	info      *store.IndexInfo
}

// New creates an Index over fragments.
func New(fragments []store.IndexedFragment, emb embed.Embedder) *Index {
	return &Index{fragments: fragments, embedder: emb}
}

// Load reads every fragment from st. A mismatch between the embedder that
// built the index and cfg is logged, not rejected.
func Load(ctx context.Context, st store.Store, emb embed.Embedder, cfg config.EmbedConfig) (*Index, error) {
	info, err := st.GetIndexInfo(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "index: read info")
	}
	if info == nil {
		return nil, eris.New("index: no index found, run `report-qa index` first")
	}
	if info.EmbedProvider != cfg.Provider || info.EmbedModel != cfg.Model {
		zap.L().Warn("index: built with a different embedder",
			zap.String("index_provider", info.EmbedProvider),
			zap.String("index_model", info.EmbedModel),
			zap.String("config_provider", cfg.Provider),
			zap.String("config_model", cfg.Model),
		)
	}

	fragments, err := st.ListFragments(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "index: load fragments")
	}
	zap.L().Info("index: loaded",
		zap.Int("fragments", len(fragments)),
		zap.Time("built_at", info.BuiltAt),
	)

	ix := New(fragments, emb)
	ix.info = info
	return ix, nil
}

// Len returns the number of indexed fragments.
func (ix *Index) Len() int { return len(ix.fragments) }

// Info returns build metadata, or nil for an index created with New.
func (ix *Index) Info() *store.IndexInfo { return ix.info }

// Search implements Searcher. Results are ordered by descending cosine
// similarity; ties keep index order.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]model.ScoredFragment, error) {
	if k <= 0 || len(ix.fragments) == 0 {
		return nil, nil
	}
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, eris.Wrap(err, "index: embed query")
	}
	if len(vecs) != 1 {
		return nil, eris.Errorf("index: embedder returned %d vectors for one query", len(vecs))
	}
	q := vecs[0]

	results := make([]model.ScoredFragment, 0, len(ix.fragments))
	for _, f := range ix.fragments {
		if len(f.Vector) != len(q) {
			return nil, eris.Errorf("index: query has %d dimensions, index has %d", len(q), len(f.Vector))
		}
		results = append(results, model.ScoredFragment{Fragment: f.Fragment, Score: cosine(q, f.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
