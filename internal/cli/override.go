package cli

import (
	"fmt"
	"strings"

	"billing/internal/service"

	"github.com/spf13/cobra"
)

func newOverrideStatusCmd(st *state) *cobra.Command {
	var (
		invoiceID uint
		status    string
		reason    string
		actor     string
	)

	cmd := &cobra.Command{
		Use:   "override-status",
		Short: "Force an invoice payment status (audited)",
		Long: `Force an invoice payment status regardless of its payments. The change
and its reason are written to the audit log. The next payment on the
invoice derives the status from the payments again.`,
		Example: `  billing override-status --invoice 12 --status PAID --reason "settled in cash"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkActor(actor); err != nil {
				return err
			}
			inv, err := st.app.Invoices.OverrideStatus(cmd.Context(), actor, invoiceID, service.OverrideStatusRequest{
				Status: strings.ToUpper(status),
				Reason: reason,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invoice %d (%s): %s\n", inv.ID, inv.InvoiceNo, inv.PaymentStatus)
			return nil
		},
	}

	cmd.Flags().UintVar(&invoiceID, "invoice", 0, "Invoice ID (required)")
	cmd.Flags().StringVar(&status, "status", "", "UNPAID, PARTIAL or PAID (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the status is overridden (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "UUID of the operator, recorded in the audit log")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("status")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
