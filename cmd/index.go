package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/report-qa/internal/corpus"
	"github.com/sells-group/report-qa/internal/embed"
	"github.com/sells-group/report-qa/internal/entity"
	"github.com/sells-group/report-qa/internal/ocr"
)

var (
	indexPDFs     string
	indexRegistry string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Extract, split, tag and embed the PDF corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("index"); err != nil {
			return err
		}

		reg, err := entity.LoadRegistry(pathOr(indexRegistry, cfg.Paths.Registry))
		if err != nil {
			return err
		}

		ext, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}
		emb, err := embed.New(ctx, cfg.Embed)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ix := corpus.NewIndexer(
			ext,
			corpus.NewSplitter(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
			corpus.NewTagger(reg.Names()),
			emb,
			st,
			corpus.Options{
				Workers:         cfg.Index.Workers,
				IncludeUntagged: cfg.Index.IncludeUntagged,
				EmbedProvider:   cfg.Embed.Provider,
				EmbedModel:      cfg.Embed.Model,
			},
		)

		stats, err := ix.Build(ctx, pathOr(indexPDFs, cfg.Paths.PDFDir))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexPDFs, "pdfs", "", "directory of PDF reports (default from config)")
	indexCmd.Flags().StringVar(&indexRegistry, "registry", "", "organization registry file (default from config)")
	rootCmd.AddCommand(indexCmd)
}
