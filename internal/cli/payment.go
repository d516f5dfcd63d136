package cli

import (
	"fmt"

	"billing/internal/service"

	"github.com/spf13/cobra"
)

func newApplyPaymentCmd(st *state) *cobra.Command {
	var (
		invoiceID uint
		amount    string
		vehicleID uint
		notes     string
		actor     string
	)

	cmd := &cobra.Command{
		Use:   "apply-payment",
		Short: "Apply a payment to an invoice",
		Long: `Apply a payment to an invoice. Up to the outstanding balance is
applied; any excess is recorded as an advance payment.`,
		Example: `  billing apply-payment --invoice 12 --amount 2500
  billing apply-payment --invoice 12 --amount 99.50 --notes "bank transfer"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkActor(actor); err != nil {
				return err
			}
			req := service.ApplyPaymentRequest{Amount: amount, Notes: notes}
			if vehicleID > 0 {
				req.VehicleID = &vehicleID
			}

			res, err := st.app.Payments.ApplyPayment(cmd.Context(), actor, invoiceID, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "invoice %d: %s\n", res.InvoiceID, res.PaymentStatus)
			fmt.Fprintf(out, "  applied: %s\n", res.AppliedAmount.StringFixed(2))
			fmt.Fprintf(out, "  advance: %s\n", res.AdvanceAmount.StringFixed(2))
			fmt.Fprintf(out, "  payment ids: %v\n", res.PaymentIDs)
			return nil
		},
	}

	cmd.Flags().UintVar(&invoiceID, "invoice", 0, "Invoice ID (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount tendered, e.g. 2500.00 (required)")
	cmd.Flags().UintVar(&vehicleID, "vehicle", 0, "Vehicle ID the payment belongs to")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form note stored with the payment")
	cmd.Flags().StringVar(&actor, "actor", "", "UUID of the operator recording the payment")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newAdvancesCmd(st *state) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "advances",
		Short: "List advance payments not yet allocated to an invoice",
		RunE: func(cmd *cobra.Command, args []string) error {
			advances, total, err := st.app.Payments.ListAdvances(cmd.Context(), page, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range advances {
				source := "-"
				if a.SourceInvoiceID != nil {
					source = fmt.Sprintf("%d", *a.SourceInvoiceID)
				}
				fmt.Fprintf(out, "#%d  %10s  from invoice %s  %s\n", a.ID, a.Amount, source, a.CreatedAt)
			}
			fmt.Fprintf(out, "%d advance payment(s)\n", total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 50, "Items per page")
	return cmd
}
