package service

import (
	"testing"

	"billing/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		prior    string
		tendered string
		applied  string
		advance  string
		status   string
	}{
		{"overpayment creates advance", "1210", "0", "2500", "1210", "1290", model.PaymentStatusPaid},
		{"underpayment is partial", "1500", "0", "500", "500", "0", model.PaymentStatusPartial},
		{"already paid becomes pure advance", "1500", "1500", "300", "0", "300", model.PaymentStatusPaid},
		{"exact payment settles", "1590", "0", "1590", "1590", "0", model.PaymentStatusPaid},
		{"second instalment completes", "1500", "500", "1000", "1000", "0", model.PaymentStatusPaid},
		{"second instalment still short", "1500", "500", "999.99", "999.99", "0", model.PaymentStatusPartial},
		{"historic overpayment floors outstanding", "100", "150", "20", "0", "20", model.PaymentStatusPaid},
		{"zero total invoice", "0", "0", "10", "0", "10", model.PaymentStatusPaid},
		{"cents are kept exact", "100.10", "0.05", "100.10", "100.05", "0.05", model.PaymentStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := Allocate(d(tt.total), d(tt.prior), d(tt.tendered))

			assert.True(t, alloc.Applied.Equal(d(tt.applied)), "applied: got %s", alloc.Applied)
			assert.True(t, alloc.Advance.Equal(d(tt.advance)), "advance: got %s", alloc.Advance)
			assert.Equal(t, tt.status, alloc.Status)
			assert.True(t, alloc.Applied.Add(alloc.Advance).Equal(d(tt.tendered)), "no money created or lost")
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, model.PaymentStatusUnpaid, DeriveStatus(d("100"), decimal.Zero))
	assert.Equal(t, model.PaymentStatusPartial, DeriveStatus(d("100"), d("0.01")))
	assert.Equal(t, model.PaymentStatusPaid, DeriveStatus(d("100"), d("100")))
	assert.Equal(t, model.PaymentStatusPaid, DeriveStatus(d("100"), d("100.01")))
}

func TestCheckStorable(t *testing.T) {
	for _, ok := range []string{"0.0001", "2500.00", "1.50000", "99999999999999.9999"} {
		assert.NoError(t, checkStorable("amount", d(ok)), ok)
	}
	for _, bad := range []string{"0.00001", "10.12345", "100000000000000", "1e20"} {
		assert.Error(t, checkStorable("amount", d(bad)), bad)
	}
}
