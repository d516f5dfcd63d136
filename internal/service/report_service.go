package service

import (
	"context"
	"time"

	"billing/internal/model"
	"billing/internal/repository"
)

const verifyBatchSize = 500

// ReportService checks the ledger against the derived-status rule.
type ReportService interface {
	Verify(ctx context.Context) (model.ReconciliationReport, error)
}

type reportService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
}

func NewReportService(invoiceRepo repository.InvoiceRepository, paymentRepo repository.PaymentRepository) ReportService {
	return &reportService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
	}
}

// Verify walks every live invoice and lists those whose stored status is not
// the one their payments imply. Read-only; repairs go through RecomputeStatus.
func (s *reportService) Verify(ctx context.Context) (model.ReconciliationReport, error) {
	report := model.ReconciliationReport{
		Mismatches:  []model.StatusMismatch{},
		GeneratedAt: time.Now(),
	}

	var afterID uint
	for {
		invoices, err := s.invoiceRepo.ListAfter(ctx, afterID, verifyBatchSize)
		if err != nil {
			return report, classifyError("Verify", err)
		}
		if len(invoices) == 0 {
			break
		}

		ids := make([]uint, 0, len(invoices))
		for _, inv := range invoices {
			ids = append(ids, inv.ID)
		}
		applied, err := s.paymentRepo.SumAppliedByInvoice(ctx, ids)
		if err != nil {
			return report, classifyError("Verify", err)
		}

		for _, invoice := range invoices {
			report.InvoicesChecked++
			derived := DeriveStatus(invoice.TotalAmount, applied[invoice.ID])
			if derived != invoice.PaymentStatus {
				report.Mismatches = append(report.Mismatches, model.StatusMismatch{
					InvoiceID:     invoice.ID,
					InvoiceNo:     invoice.InvoiceNo,
					StoredStatus:  invoice.PaymentStatus,
					DerivedStatus: derived,
					TotalAmount:   invoice.TotalAmount,
					TotalApplied:  applied[invoice.ID],
				})
			}
		}
		afterID = invoices[len(invoices)-1].ID
	}

	var err error
	report.AdvanceTotal, report.AdvanceCount, err = s.paymentRepo.SumAdvances(ctx)
	if err != nil {
		return report, classifyError("Verify", err)
	}

	return report, nil
}
