package main

import (
	"github.com/spf13/cobra"

	"github.com/coachline/coaching-core/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API, the notification workers and, when AUDIT_INTERVAL is
set, the role reconciler. Usage:

	coachcore serve
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}
