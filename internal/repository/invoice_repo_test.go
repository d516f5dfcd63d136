package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"billing/internal/model"
	"billing/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInvoiceRepository_UpdateStatusChecksVersion(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	inv := &model.Invoice{InvoiceNo: "INV-V", TotalAmount: decimal.NewFromInt(100)}
	require.NoError(t, repo.Create(ctx, inv))
	assert.Equal(t, model.PaymentStatusUnpaid, inv.PaymentStatus)
	assert.EqualValues(t, 1, inv.Version)

	ok, err := repo.UpdateStatus(ctx, inv.ID, 1, model.PaymentStatusPartial)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, inv.ID, 1, model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not write")

	stored, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPartial, stored.PaymentStatus)
	assert.EqualValues(t, 2, stored.Version)
}

func TestInvoiceRepository_SoftDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	inv := &model.Invoice{InvoiceNo: "INV-20260101-00001", TotalAmount: decimal.NewFromInt(5)}
	require.NoError(t, repo.Create(ctx, inv))
	require.NoError(t, repo.SoftDelete(ctx, inv.ID))

	_, err := repo.FindByID(ctx, inv.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByIDForUpdate(ctx, inv.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	live, err := repo.ListAfter(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, live)

	count, err := repo.CountByPrefix(ctx, "INV-20260101-")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestInvoiceRepository_ListPaginates(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	for _, no := range []string{"A", "B", "C"} {
		require.NoError(t, repo.Create(ctx, &model.Invoice{InvoiceNo: no, TotalAmount: decimal.NewFromInt(1)}))
	}

	page, total, err := repo.List(ctx, InvoiceListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "A", page[0].InvoiceNo)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewInvoiceRepository(db)
	tm := NewTransactionManager(db, time.Second)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, &model.Invoice{InvoiceNo: "ROLLBACK", TotalAmount: decimal.NewFromInt(1)}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	live, err := repo.ListAfter(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestInvoiceRepository_ListAfter(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	for _, no := range []string{"A", "B", "C"} {
		require.NoError(t, repo.Create(ctx, &model.Invoice{InvoiceNo: no, TotalAmount: decimal.NewFromInt(1)}))
	}

	batch, err := repo.ListAfter(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "A", batch[0].InvoiceNo)

	rest, err := repo.ListAfter(ctx, batch[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "C", rest[0].InvoiceNo)
}
