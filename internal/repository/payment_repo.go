package repository

import (
	"context"

	"billing/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRepository is append-only: there is no update or delete.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	ListByInvoice(ctx context.Context, invoiceID uint) ([]model.Payment, error)
	SumApplied(ctx context.Context, invoiceID uint) (decimal.Decimal, error)
	SumAppliedByInvoice(ctx context.Context, invoiceIDs []uint) (map[uint]decimal.Decimal, error)
	ListAdvances(ctx context.Context, page, limit int) ([]model.Payment, int64, error)
	SumAdvances(ctx context.Context) (decimal.Decimal, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.Status == "" {
		payment.Status = model.PaymentRecordCompleted
	}
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uint) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoiceID).Order("id asc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// SumApplied adds up amounts in Go so that every driver goes through
// decimal scanning instead of the database's float arithmetic.
func (r *paymentRepository) SumApplied(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Where("invoice_id = ?", invoiceID).
		Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// SumAppliedByInvoice is SumApplied for a batch of invoices. Invoices without
// payments are absent from the map.
func (r *paymentRepository) SumAppliedByInvoice(ctx context.Context, invoiceIDs []uint) (map[uint]decimal.Decimal, error) {
	sums := make(map[uint]decimal.Decimal, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return sums, nil
	}

	var rows []struct {
		InvoiceID uint
		Amount    decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("invoice_id, amount").
		Where("invoice_id IN ?", invoiceIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		sums[row.InvoiceID] = sums[row.InvoiceID].Add(row.Amount)
	}
	return sums, nil
}

func (r *paymentRepository) ListAdvances(ctx context.Context, page, limit int) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Payment{}).Where("invoice_id IS NULL").Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("id desc").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *paymentRepository) SumAdvances(ctx context.Context) (decimal.Decimal, int64, error) {
	var amounts []decimal.Decimal
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Where("invoice_id IS NULL").
		Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, 0, err
	}
	return decimal.Sum(decimal.Zero, amounts...), int64(len(amounts)), nil
}
