package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment record status
const (
	PaymentRecordCompleted = "COMPLETED"
)

// Payment is an append-only record of money received.
// A nil InvoiceID marks an advance: customer credit not yet tied to any invoice.
type Payment struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID       *uint           `gorm:"index" json:"invoice_id"`
	Invoice         *Invoice        `gorm:"foreignKey:InvoiceID" json:"-"`
	SourceInvoiceID *uint           `gorm:"index" json:"source_invoice_id"` // invoice whose overpayment produced this advance
	VehicleID       *uint           `gorm:"index" json:"vehicle_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Status          string          `gorm:"type:varchar(20);not null;default:'COMPLETED'" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

// IsAdvance reports whether the payment is unassigned customer credit.
func (p Payment) IsAdvance() bool {
	return p.InvoiceID == nil
}
