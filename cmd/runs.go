package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/report-qa/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect answering run history",
	Long:  "Commands for listing and viewing recorded answering runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List answering runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the submission recorded by a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		formatRunDetail(os.Stdout, run)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tANSWERED\tUPLOAD\tCREATED")
	for _, r := range runs {
		upload := "-"
		if r.UploadStatus != 0 {
			upload = fmt.Sprintf("%d", r.UploadStatus)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			r.ID, r.SubmissionName, r.Answered, r.Questions, upload,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	tw.Flush() //nolint:errcheck
}

func formatRunDetail(w io.Writer, r *model.Run) {
	fmt.Fprintf(w, "Run:        %s\n", r.ID)
	fmt.Fprintf(w, "Name:       %s\n", r.SubmissionName)
	fmt.Fprintf(w, "Answered:   %d/%d\n", r.Answered, r.Questions)
	fmt.Fprintf(w, "Created:    %s\n", r.CreatedAt.Local().Format(time.DateTime))
	if r.UploadStatus != 0 {
		fmt.Fprintf(w, "Upload:     %d %s\n", r.UploadStatus, r.UploadBody)
	}
	fmt.Fprintf(w, "\n%s\n", r.Payload)
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
