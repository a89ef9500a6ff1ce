package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/answer"
	"github.com/sells-group/report-qa/internal/embed"
	"github.com/sells-group/report-qa/internal/entity"
	"github.com/sells-group/report-qa/internal/index"
	"github.com/sells-group/report-qa/internal/llm"
	"github.com/sells-group/report-qa/internal/retrieval"
	"github.com/sells-group/report-qa/internal/store"
)

// initStore opens the configured store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// queryEnv holds the read-only state shared by every question.
type queryEnv struct {
	Store     store.Store
	Registry  *entity.Registry
	Index     *index.Index
	Router    *retrieval.Router
	Extractor *answer.Extractor
}

// initQueryEnv loads the registry and index. The extractor is only built
// when withLLM is set.
func initQueryEnv(ctx context.Context, registryPath string, withLLM bool) (*queryEnv, error) {
	reg, err := entity.LoadRegistry(registryPath)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	emb, err := embed.New(ctx, cfg.Embed)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	ix, err := index.Load(ctx, st, emb, cfg.Embed)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	env := &queryEnv{
		Store:    st,
		Registry: reg,
		Index:    ix,
		Router:   retrieval.NewRouter(ix, cfg.Retrieval),
	}

	if withLLM {
		gen, err := llm.New(ctx, cfg.LLM)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		env.Extractor = answer.NewExtractor(reg.Names(), env.Router, gen)
	}

	zap.L().Info("query environment ready",
		zap.Int("organizations", reg.Len()),
		zap.Int("fragments", ix.Len()),
		zap.String("llm_provider", cfg.LLM.Provider),
	)
	return env, nil
}

// Close releases the store.
func (e *queryEnv) Close() {
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}
