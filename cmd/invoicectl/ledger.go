package main

import (
	"fmt"

	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and repair account ledgers",
}

var ledgerVerifyCmd = &cobra.Command{
	Use:     "verify <account-id>",
	Short:   "Replay an account's ledger and compare it with the cached balance",
	Example: "  invoicectl ledger verify 3f1c...",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(s *portssvc.ServiceContainer) error {
			report, err := s.Balance.VerifyChain(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	},
}

var ledgerRebuildCmd = &cobra.Command{
	Use:   "rebuild <account-id>",
	Short: "Rewrite the cached balance from a ledger replay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(s *portssvc.ServiceContainer) error {
			report, err := s.Balance.RebuildProjection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	},
}

var ledgerAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify the ledger of every account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		failOnMismatch, _ := cmd.Flags().GetBool("fail-on-mismatch")
		return withServices(cmd.Context(), func(s *portssvc.ServiceContainer) error {
			report, err := s.Sweeper.AuditLedger(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if failOnMismatch && len(report.Inconsistent) > 0 {
				return fmt.Errorf("%d account(s) failed verification", len(report.Inconsistent))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd, ledgerRebuildCmd, ledgerAuditCmd)

	ledgerAuditCmd.Flags().Bool("fail-on-mismatch", false, "Exit non-zero when any account fails verification")
}
