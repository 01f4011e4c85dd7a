package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coachline/coaching-core/internal/pkg/config"
	"github.com/coachline/coaching-core/pkg/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "coachcore",
	Short:         "Identity and profile lifecycle service for the coaching platform",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadContext(cmd.Context())
		if err != nil {
			return err
		}
		log = logger.Init(logger.Options{
			Level:  cfg.LogLevel,
			Pretty: cfg.IsDevelopment(),
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(auditCmd)
}
