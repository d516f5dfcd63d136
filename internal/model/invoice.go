package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus enum constants
const (
	PaymentStatusUnpaid  = "UNPAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPaid    = "PAID"
)

// IsValidPaymentStatus reports whether s is one of the invoice payment statuses.
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// Invoice is the ledger row a customer owes for a service job.
// PaymentStatus is derived from TotalAmount and the payments applied to it;
// only audited administrative operations may set it any other way.
type Invoice struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNo     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	VehicleID     *uint           `gorm:"index" json:"vehicle_id"` // informational only
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'UNPAID';index" json:"payment_status"`
	Version       int64           `gorm:"not null;default:1" json:"version"` // bumped on every status write
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
