package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/store"
	"github.com/sells-group/report-qa/internal/submission"
)

var submitRunID string

var submitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Upload a submission file or the submission stored with a run",
	Long:  "Uploads the given submission file. With --run-id and no file, uploads the submission recorded for that run. The upload result is stored on the run when --run-id is set.",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(args) == 0 && submitRunID == "" {
			return eris.New("submit: a file or --run-id is required")
		}
		if err := cfg.Validate("submit"); err != nil {
			return err
		}

		if submitRunID == "" {
			return submitFile(ctx, nil, args[0], "")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if len(args) == 1 {
			return submitFile(ctx, st, args[0], submitRunID)
		}
		return submitRun(ctx, st, submitRunID)
	},
}

// submitFile checks that path holds a submission and uploads it.
func submitFile(ctx context.Context, st store.Store, path, runID string) error {
	sub, err := submission.Load(path)
	if err != nil {
		return err
	}
	zap.L().Info("uploading submission",
		zap.String("file", path),
		zap.String("submission_name", sub.SubmissionName),
		zap.Int("answers", len(sub.Answers)),
	)
	return uploadAndRecord(ctx, st, path, runID)
}

// submitRun uploads the payload stored with runID and records the reply on
// the run.
func submitRun(ctx context.Context, st store.Store, runID string) error {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(run.Payload) == 0 {
		return eris.Errorf("submit: run %s has no stored submission", runID)
	}

	dir, err := os.MkdirTemp("", "report-qa-submit-")
	if err != nil {
		return eris.Wrap(err, "submit: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	name := run.SubmissionName
	if name == "" {
		name = run.ID
	}
	path := filepath.Join(dir, filepath.Base(name)+".json")
	if err := os.WriteFile(path, run.Payload, 0o600); err != nil {
		return eris.Wrap(err, "submit: write stored submission")
	}
	return submitFile(ctx, st, path, runID)
}

func init() {
	submitCmd.Flags().StringVar(&submitRunID, "run-id", "", "upload the submission stored with this run and record the result on it")
	rootCmd.AddCommand(submitCmd)
}
