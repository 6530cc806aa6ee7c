package main

import (
	"time"

	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a sweeper task once",
}

var sweepClaimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Reclaim review claims that have gone stale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(s *portssvc.ServiceContainer) error {
			report, err := s.Sweeper.ReclaimStuckClaims(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	},
}

var sweepHygieneCmd = &cobra.Command{
	Use:   "hygiene",
	Short: "Audit orphaned objects, prune expired rows and audit every ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(s *portssvc.ServiceContainer) error {
			return printJSON(cmd, s.Sweeper.RunHygiene(cmd.Context(), time.Now()))
		})
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.AddCommand(sweepClaimsCmd, sweepHygieneCmd)
}
