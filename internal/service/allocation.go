package service

import (
	"fmt"

	"billing/internal/model"

	"github.com/shopspring/decimal"
)

// Allocation is how one tendered amount splits across an invoice.
// Applied + Advance always equals the tendered amount.
type Allocation struct {
	TotalOwed    decimal.Decimal
	PriorApplied decimal.Decimal
	Outstanding  decimal.Decimal
	Applied      decimal.Decimal
	Advance      decimal.Decimal
	Status       string
}

// Allocate settles as much of the outstanding balance as tendered covers and
// turns the remainder into an advance. Outstanding is floored at zero, so a
// payment on a fully paid invoice becomes an advance in full.
func Allocate(totalOwed, priorApplied, tendered decimal.Decimal) Allocation {
	outstanding := totalOwed.Sub(priorApplied)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	applied := decimal.Min(tendered, outstanding)
	advance := tendered.Sub(applied)

	return Allocation{
		TotalOwed:    totalOwed,
		PriorApplied: priorApplied,
		Outstanding:  outstanding,
		Applied:      applied,
		Advance:      advance,
		Status:       DeriveStatus(totalOwed, priorApplied.Add(applied)),
	}
}

// DeriveStatus is the only rule for an invoice's payment status.
// An invoice owing nothing counts as paid.
func DeriveStatus(totalOwed, totalApplied decimal.Decimal) string {
	switch {
	case totalApplied.GreaterThanOrEqual(totalOwed):
		return model.PaymentStatusPaid
	case totalApplied.IsPositive():
		return model.PaymentStatusPartial
	default:
		return model.PaymentStatusUnpaid
	}
}

// Amount columns are decimal(18,4).
const moneyScale = 4

var maxMoney = decimal.New(1, 18-moneyScale)

// checkStorable rejects amounts the ledger columns would round or overflow.
func checkStorable(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(moneyScale)) {
		return fmt.Errorf("%s must have at most %d decimal places, got %s", field, moneyScale, amount.String())
	}
	if amount.Abs().GreaterThanOrEqual(maxMoney) {
		return fmt.Errorf("%s must be below %s, got %s", field, maxMoney.String(), amount.String())
	}
	return nil
}
