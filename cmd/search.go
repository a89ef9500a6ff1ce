package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/internal/retrieval"
)

var (
	searchRegistry string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Show the fragments a question is routed to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := strings.Join(args, " ")

		env, err := initQueryEnv(ctx, pathOr(searchRegistry, cfg.Paths.Registry), false)
		if err != nil {
			return err
		}
		defer env.Close()

		companies := retrieval.ExtractQueryCompanies(question, env.Registry.Names())
		fragments, err := env.Router.Retrieve(ctx, question, companies)
		if err != nil {
			return err
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"companies": companies, "fragments": fragments})
		}
		formatSearch(os.Stdout, companies, fragments)
		return nil
	},
}

func formatSearch(w io.Writer, companies []string, fragments []model.Fragment) {
	if len(companies) == 0 {
		fmt.Fprintln(w, "Companies: (none, unfiltered fallback)")
	} else {
		fmt.Fprintf(w, "Companies: %s\n", strings.Join(companies, ", "))
	}
	for i, f := range fragments {
		text := strings.Join(strings.Fields(f.Text), " ")
		if r := []rune(text); len(r) > 160 {
			text = string(r[:160]) + "..."
		}
		fmt.Fprintf(w, "\n[CHUNK %d] %s p.%d [%s]\n%s\n", i, f.Source, f.Page, strings.Join(f.Organizations, ", "), text)
	}
}

func init() {
	searchCmd.Flags().StringVar(&searchRegistry, "registry", "", "organization registry file (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print JSON")
	rootCmd.AddCommand(searchCmd)
}
