package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/cost"
	"github.com/sells-group/report-qa/internal/llm"
	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/internal/registry"
	"github.com/sells-group/report-qa/internal/store"
	"github.com/sells-group/report-qa/internal/submission"
)

var (
	answerQuestions string
	answerRegistry  string
	answerOut       string
	answerXLSX      string
	answerName      string
	answerSubmit    bool
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer every question and write the submission file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("answer"); err != nil {
			return err
		}
		if answerSubmit {
			if err := cfg.Validate("submit"); err != nil {
				return err
			}
		}

		questions, err := registry.LoadQuestionsFromFile(pathOr(answerQuestions, cfg.Paths.Questions))
		if err != nil {
			return err
		}

		env, err := initQueryEnv(ctx, pathOr(answerRegistry, cfg.Paths.Registry), true)
		if err != nil {
			return err
		}
		defer env.Close()

		answers, usage, err := env.Extractor.AnswerAll(ctx, questions)
		if err != nil {
			return err
		}
		modelID := llm.ModelFor(cfg.LLM)
		if spend, ok := cost.NewCalculator(cost.DefaultRates()).Estimate(modelID, usage); ok {
			zap.L().Info("estimated model cost",
				zap.String("model", modelID),
				zap.Float64("usd", spend),
			)
		}

		name := pathOr(answerName, cfg.Submission.Name)
		b := submission.NewBuilder(cfg.Submission.TeamEmail, name)
		b.Add(answers...)
		sub := b.Build()

		out := pathOr(answerOut, cfg.Paths.Submission)
		if err := submission.Save(out, sub); err != nil {
			return err
		}
		if answerXLSX != "" {
			if err := submission.ExportXLSX(answerXLSX, sub); err != nil {
				return err
			}
		}

		run, err := recordRun(ctx, env.Store, sub)
		if err != nil {
			return err
		}
		fmt.Printf("Answered %d/%d questions, wrote %s (run %s)\n",
			run.Answered, run.Questions, out, run.ID)

		if !answerSubmit {
			return nil
		}
		return uploadAndRecord(ctx, env.Store, out, run.ID)
	},
}

// recordRun stores the submission in the run history.
func recordRun(ctx context.Context, st store.Store, sub model.Submission) (*model.Run, error) {
	payload, err := submission.Marshal(sub)
	if err != nil {
		return nil, err
	}
	run, err := st.CreateRun(ctx, model.Run{
		SubmissionName: sub.SubmissionName,
		Questions:      len(sub.Answers),
		Answered:       model.CountAnswered(sub.Answers),
		Payload:        payload,
	})
	if err != nil {
		return nil, eris.Wrap(err, "record run")
	}
	return run, nil
}

// uploadAndRecord posts the file and, when runID is set, stores the reply.
func uploadAndRecord(ctx context.Context, st store.Store, path, runID string) error {
	up := submission.NewUploader(cfg.Submission.URL, time.Duration(cfg.Submission.TimeoutSecs)*time.Second)
	res, err := up.Upload(ctx, path)
	if err != nil {
		return err
	}
	fmt.Printf("HTTP status: %d\nResponse text: %s\n", res.StatusCode, res.Body)

	if st != nil && runID != "" {
		if err := st.UpdateRunUpload(ctx, runID, res.StatusCode, res.Body); err != nil {
			zap.L().Warn("failed to record upload result", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return nil
}

func init() {
	answerCmd.Flags().StringVar(&answerQuestions, "questions", "", "question file (default from config)")
	answerCmd.Flags().StringVar(&answerRegistry, "registry", "", "organization registry file (default from config)")
	answerCmd.Flags().StringVar(&answerOut, "out", "", "submission output file (default from config)")
	answerCmd.Flags().StringVar(&answerXLSX, "xlsx", "", "also export a review spreadsheet to this file")
	answerCmd.Flags().StringVar(&answerName, "name", "", "submission name (default from config)")
	answerCmd.Flags().BoolVar(&answerSubmit, "submit", false, "upload the submission after writing it")
	rootCmd.AddCommand(answerCmd)
}
