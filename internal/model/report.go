package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusMismatch is an invoice whose stored payment status disagrees with
// the status derived from its applied payments.
type StatusMismatch struct {
	InvoiceID     uint            `json:"invoice_id"`
	InvoiceNo     string          `json:"invoice_no"`
	StoredStatus  string          `json:"stored_status"`
	DerivedStatus string          `json:"derived_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalApplied  decimal.Decimal `json:"total_applied"`
}

// ReconciliationReport aggregates a full scan of the invoice ledger.
type ReconciliationReport struct {
	InvoicesChecked int              `json:"invoices_checked"`
	Mismatches      []StatusMismatch `json:"mismatches"`
	AdvanceCount    int64            `json:"advance_count"`
	AdvanceTotal    decimal.Decimal  `json:"advance_total"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
