package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/report-qa/internal/config"
)

var configShowSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := *cfg
		if !configShowSecrets {
			out = maskSecrets(out)
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "encode config")
		}
		return enc.Close()
	},
}

// maskSecrets hides API keys in a copy of c.
func maskSecrets(c config.Config) config.Config {
	c.LLM.Key = mask(c.LLM.Key)
	c.Embed.Key = mask(c.Embed.Key)
	c.OCR.MistralKey = mask(c.OCR.MistralKey)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

func init() {
	configCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print API keys unmasked")
	rootCmd.AddCommand(configCmd)
}
