package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/report-qa/internal/server"
)

var (
	servePort     int
	serveRegistry string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP question answering API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initQueryEnv(ctx, pathOr(serveRegistry, cfg.Paths.Registry), true)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := server.New(env.Extractor, env.Router, env.Registry.Names(), cfg.Server)
		return srv.Run(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveRegistry, "registry", "", "organization registry file (default from config)")
	rootCmd.AddCommand(serveCmd)
}
