package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"billing/internal/app"
	"billing/internal/config"
	"billing/internal/model"
	"billing/internal/repository"
	"billing/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// useSQLite points every command at db for the duration of the test.
func useSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewDB(t)

	previous := openApp
	openApp = func(cfg *config.Config) (*app.App, func() error, error) {
		a := app.NewWithDB(cfg, db)
		return a, func() error { a.Hub.Stop(); return nil }, nil
	}
	t.Cleanup(func() { openApp = previous })
	return db
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, db *gorm.DB, no, total, status string) uint {
	t.Helper()
	inv := &model.Invoice{InvoiceNo: no, TotalAmount: decimal.RequireFromString(total), PaymentStatus: status}
	require.NoError(t, repository.NewInvoiceRepository(db).Create(context.Background(), inv))
	return inv.ID
}

func TestApplyPaymentCommand(t *testing.T) {
	db := useSQLite(t)
	id := seed(t, db, "INV-CLI", "1210", model.PaymentStatusUnpaid)

	out, err := run(t, "apply-payment", "--invoice", itoa(id), "--amount", "2500")
	require.NoError(t, err)
	assert.Contains(t, out, "PAID")
	assert.Contains(t, out, "applied: 1210.00")
	assert.Contains(t, out, "advance: 1290.00")

	out, err = run(t, "advances")
	require.NoError(t, err)
	assert.Contains(t, out, "1 advance payment(s)")
	assert.Contains(t, out, "1290.00")
}

func TestApplyPaymentCommand_Errors(t *testing.T) {
	db := useSQLite(t)
	id := seed(t, db, "INV-CLI-ERR", "10", model.PaymentStatusUnpaid)

	_, err := run(t, "apply-payment", "--invoice", itoa(id))
	assert.Error(t, err, "amount is required")

	_, err = run(t, "apply-payment", "--invoice", itoa(id), "--amount", "0")
	assert.Error(t, err)

	_, err = run(t, "apply-payment", "--invoice", "999", "--amount", "5")
	assert.Error(t, err)
}

func TestVerifyAndRepairCommands(t *testing.T) {
	db := useSQLite(t)
	id := seed(t, db, "INV-DRIFT", "100", model.PaymentStatusUnpaid)

	out, err := run(t, "override-status", "--invoice", itoa(id), "--status", "paid", "--reason", "waived")
	require.NoError(t, err)
	assert.Contains(t, out, "PAID")

	out, err = run(t, "verify")
	assert.ErrorIs(t, err, ErrMismatches)
	assert.Contains(t, out, "stored PAID, payments say UNPAID")

	_, err = run(t, "repair")
	assert.Error(t, err)

	out, err = run(t, "repair", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "1 invoice(s) repaired")

	out, err = run(t, "verify", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"mismatches": []`)
}

func TestCommands_RejectMalformedActor(t *testing.T) {
	db := useSQLite(t)
	id := seed(t, db, "INV-ACTOR", "100", model.PaymentStatusUnpaid)

	_, err := run(t, "override-status", "--invoice", itoa(id), "--status", "PAID", "--reason", "waived", "--actor", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --actor")

	_, err = run(t, "apply-payment", "--invoice", itoa(id), "--amount", "5", "--actor", "42")
	require.Error(t, err)

	_, err = run(t, "repair", "--invoice", itoa(id), "--actor", "not-a-uuid")
	require.Error(t, err)

	var audits, payments int64
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&audits).Error)
	require.NoError(t, db.Model(&model.Payment{}).Count(&payments).Error)
	assert.Zero(t, audits)
	assert.Zero(t, payments)

	inv, err := repository.NewInvoiceRepository(db).FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusUnpaid, inv.PaymentStatus)

	out, err := run(t, "override-status", "--invoice", itoa(id), "--status", "PAID", "--reason", "waived",
		"--actor", "6f1c2a9e-3b4d-4c5e-8f70-112233445566")
	require.NoError(t, err)
	assert.Contains(t, out, "PAID")
}

func TestMigrateCommand(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
