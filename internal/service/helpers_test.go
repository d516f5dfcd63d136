package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"billing/internal/locker"
	"billing/internal/model"
	"billing/internal/repository"
	"billing/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	name string
	data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{name: event, data: data})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	locks       *locker.Registry
	events      *recordingPublisher
	payments    PaymentService
	invoices    InvoiceService
	reports     ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithWait(t, 5*time.Second)
}

func newFixtureWithWait(t *testing.T, wait time.Duration) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	f := &fixture{
		db:          db,
		invoiceRepo: repository.NewInvoiceRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		auditRepo:   repository.NewAuditRepository(db),
		txManager:   repository.NewTransactionManager(db, wait),
		locks:       locker.NewRegistry(wait),
		events:      &recordingPublisher{},
	}
	f.payments = NewPaymentService(f.invoiceRepo, f.paymentRepo, f.txManager, f.locks, f.events,
		PaymentServiceConfig{RetryDelay: time.Millisecond, Logger: zerolog.Nop()})
	f.invoices = NewInvoiceService(f.invoiceRepo, f.paymentRepo, f.auditRepo, f.txManager, f.locks, f.events, zerolog.Nop())
	f.reports = NewReportService(f.invoiceRepo, f.paymentRepo)
	return f
}

// seedInvoice stores an invoice directly, bypassing the service.
func (f *fixture) seedInvoice(t *testing.T, no, total, status string) *model.Invoice {
	t.Helper()
	inv := &model.Invoice{
		InvoiceNo:     no,
		TotalAmount:   decimal.RequireFromString(total),
		PaymentStatus: status,
	}
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))
	return inv
}

// seedApplied stores an applied payment without touching the invoice status.
func (f *fixture) seedApplied(t *testing.T, invoiceID uint, amount string) {
	t.Helper()
	require.NoError(t, f.paymentRepo.Create(context.Background(), &model.Payment{
		InvoiceID: &invoiceID,
		Amount:    decimal.RequireFromString(amount),
	}))
}
