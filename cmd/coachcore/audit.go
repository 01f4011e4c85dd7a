package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coachline/coaching-core/internal/core/service"
	"github.com/coachline/coaching-core/internal/server"
)

var (
	auditIncludeMissing bool
	auditJSON           bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List identities whose role disagrees with their profile row",
	Long: `Walks every identity once and compares its role with the profile row.
Exits non-zero when drift is found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stores, err := server.OpenStores(ctx, cfg, false, log)
		if err != nil {
			return err
		}
		defer func() { _ = stores.Close(context.WithoutCancel(ctx)) }()

		audit := service.NewAuditService(stores.Identities, stores.Profiles,
			service.AuditOptions{IncludeMissing: auditIncludeMissing, StoreTimeout: cfg.StoreCallTimeout}, log)
		mismatches, err := audit.Collect(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if auditJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(mismatches); err != nil {
				return err
			}
		} else {
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tIDENTITY ROLE\tPROFILE ROLE")
			for _, m := range mismatches {
				profileRole := string(m.ProfileRole)
				if profileRole == "" {
					profileRole = "(no profile)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.IdentityRole, profileRole)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		if len(mismatches) > 0 {
			return fmt.Errorf("%d identities with role drift", len(mismatches))
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditIncludeMissing, "include-missing", false, "also report identities without a profile row")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output as JSON")
}
