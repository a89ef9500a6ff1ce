package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/config"
)

var (
	cfg *config.Config

	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "report-qa",
	Short: "Question answering over a corpus of company PDF reports",
	Long: `report-qa builds an organization registry from a question set, indexes the
fragments of a PDF corpus that mention those organizations, answers each
question with a cited fragment via an LLM, and uploads the submission.

Typical flow: companies -> index -> answer [--submit].`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFrom(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyLogOverrides(c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("file", configPath),
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("llm_provider", cfg.LLM.Provider),
			zap.String("embed_provider", cfg.Embed.Provider),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// applyLogOverrides lets the persistent flags win over file and env values.
func applyLogOverrides(c *config.Config) {
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json, console)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
