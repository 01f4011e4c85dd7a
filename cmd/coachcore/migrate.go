package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coachline/coaching-core/internal/infrastructure/db/postgres"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run profile database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply up migrations (all of them unless --steps is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateSteps < 0 {
			return errors.New("--steps must not be negative")
		}
		return runMigrate(cmd, migrateSteps)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (one unless --steps is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := migrateSteps
		if steps <= 0 {
			steps = 1
		}
		return runMigrate(cmd, -steps)
	},
}

func init() {
	migrateCmd.PersistentFlags().IntVar(&migrateSteps, "steps", 0, "number of migrations to apply or roll back")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrate(cmd *cobra.Command, steps int) error {
	if cfg.Postgres.URL == "" {
		return errors.New("POSTGRES_URL is required")
	}
	version, err := postgres.Migrate(cfg.Postgres.URL, steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "profile schema at version %d\n", version)
	return nil
}
