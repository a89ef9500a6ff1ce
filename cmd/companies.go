package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/report-qa/internal/entity"
	"github.com/sells-group/report-qa/internal/llm"
	"github.com/sells-group/report-qa/internal/registry"
)

var (
	companiesQuestions string
	companiesOut       string
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Build the organization registry from the question file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("companies"); err != nil {
			return err
		}

		questions, err := registry.LoadQuestionsFromFile(pathOr(companiesQuestions, cfg.Paths.Questions))
		if err != nil {
			return err
		}

		var gen llm.Generator
		if cfg.Entity.Recognizer == "llm" {
			if gen, err = llm.New(ctx, cfg.LLM); err != nil {
				return err
			}
		}
		rec, err := entity.NewRecognizer(cfg.Entity.Recognizer, gen)
		if err != nil {
			return err
		}

		reg, err := entity.BuildRegistry(ctx, rec, registry.Texts(questions))
		if err != nil {
			return err
		}

		out := pathOr(companiesOut, cfg.Paths.Registry)
		if err := reg.Save(out); err != nil {
			return err
		}
		fmt.Printf("Wrote %d organizations to %s\n", reg.Len(), out)
		return nil
	},
}

// pathOr returns flag when set, else the configured default.
func pathOr(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}

func init() {
	companiesCmd.Flags().StringVar(&companiesQuestions, "questions", "", "question file (default from config)")
	companiesCmd.Flags().StringVar(&companiesOut, "out", "", "registry output file (default from config)")
	rootCmd.AddCommand(companiesCmd)
}
