package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/report-qa/internal/embed"
	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/internal/ocr"
	"github.com/sells-group/report-qa/internal/store"
)

// fragmentNamespace scopes deterministic fragment IDs.
var fragmentNamespace = uuid.MustParse("6f1c2a9e-3b7d-4c1e-9a52-0d8e4f7b6a13")

// Options configures an Indexer.
type Options struct {
	Workers         int
	IncludeUntagged bool
	EmbedProvider   string
	EmbedModel      string
}

// Stats summarizes one index build.
type Stats struct {
	Files     int           `json:"files"`
	Pages     int           `json:"pages"`
	Fragments int           `json:"fragments"`
	Untagged  int           `json:"untagged"`
	Indexed   int           `json:"indexed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Indexer extracts, splits, tags, embeds and stores a PDF corpus.
type Indexer struct {
	extractor ocr.Extractor
	splitter  *Splitter
	tagger    *Tagger
	embedder  embed.Embedder
	store     store.Store
	opts      Options
}

// NewIndexer creates an Indexer.
func NewIndexer(ext ocr.Extractor, spl *Splitter, tag *Tagger, emb embed.Embedder, st store.Store, opts Options) *Indexer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Indexer{extractor: ext, splitter: spl, tagger: tag, embedder: emb, store: st, opts: opts}
}

// Discover returns every PDF below dir in sorted order.
func Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: discover %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// Build indexes every PDF under dir and replaces the stored index.
func (ix *Indexer) Build(ctx context.Context, dir string) (*Stats, error) {
	start := time.Now()
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, eris.Errorf("corpus: no pdf files found in %s", dir)
	}

	pages, err := ix.extractAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Files: len(paths)}
	var fragments []model.Fragment
	for i, path := range paths {
		for _, page := range pages[i] {
			stats.Pages++
			frags, err := ix.fragmentPage(path, page, stats)
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, frags...)
		}
	}

	indexed, err := ix.embedFragments(ctx, fragments)
	if err != nil {
		return nil, err
	}

	info := store.IndexInfo{
		EmbedProvider: ix.opts.EmbedProvider,
		EmbedModel:    ix.opts.EmbedModel,
	}
	if len(indexed) > 0 {
		info.Dimensions = len(indexed[0].Vector)
	}
	if err := ix.store.ReplaceFragments(ctx, indexed, info); err != nil {
		return nil, eris.Wrap(err, "corpus: store fragments")
	}

	stats.Indexed = len(indexed)
	stats.Elapsed = time.Since(start)
	if stats.Indexed == 0 {
		zap.L().Warn("corpus: no fragment mentions a registry organization")
	}
	zap.L().Info("corpus: index built",
		zap.Int("files", stats.Files),
		zap.Int("pages", stats.Pages),
		zap.Int("fragments", stats.Fragments),
		zap.Int("untagged", stats.Untagged),
		zap.Int("indexed", stats.Indexed),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// extractAll runs page extraction with bounded parallelism. The result is
// indexed like paths.
func (ix *Indexer) extractAll(ctx context.Context, paths []string) ([][]ocr.Page, error) {
	out := make([][]ocr.Page, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			pages, err := ix.extractor.ExtractPages(gctx, path)
			if err != nil {
				return eris.Wrapf(err, "corpus: extract %s", path)
			}
			sort.SliceStable(pages, func(a, b int) bool { return pages[a].Index < pages[b].Index })
			out[i] = pages
			zap.L().Debug("corpus: extracted", zap.String("file", path), zap.Int("pages", len(pages)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (ix *Indexer) fragmentPage(path string, page ocr.Page, stats *Stats) ([]model.Fragment, error) {
	spans, err := ix.splitter.Split(page.Text)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: %s page %d", path, page.Index)
	}

	var out []model.Fragment
	for n, span := range spans {
		stats.Fragments++
		orgs := ix.tagger.Tag(span.Text)
		if len(orgs) == 0 {
			stats.Untagged++
			if !ix.opts.IncludeUntagged {
				continue
			}
		}
		out = append(out, model.Fragment{
			ID:            fragmentID(path, page.Index, n),
			Text:          span.Text,
			Source:        path,
			Page:          page.Index,
			StartIndex:    span.Start,
			Organizations: orgs,
		})
	}
	return out, nil
}

func (ix *Indexer) embedFragments(ctx context.Context, fragments []model.Fragment) ([]store.IndexedFragment, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: embed fragments")
	}
	if len(vectors) != len(fragments) {
		return nil, eris.Errorf("corpus: embedder returned %d vectors for %d fragments", len(vectors), len(fragments))
	}

	out := make([]store.IndexedFragment, len(fragments))
	for i, f := range fragments {
		embed.Normalize(vectors[i])
		out[i] = store.IndexedFragment{Fragment: f, Vector: vectors[i]}
	}
	return out, nil
}

func fragmentID(path string, page, n int) string {
	key := fmt.Sprintf("%s#%d#%d", filepath.ToSlash(path), page, n)
	return uuid.NewSHA1(fragmentNamespace, []byte(key)).String()
}
