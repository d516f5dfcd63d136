package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"billing/internal/locker"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const opApplyPayment = "ApplyPayment"

// Event names published after a successful commit.
const (
	EventPaymentApplied       = "payment.applied"
	EventInvoiceStatusChanged = "invoice.status_changed"
)

// EventPublisher receives notifications once changes are committed.
type EventPublisher interface {
	Publish(event string, data interface{})
}

// --- DTOs ---

type ApplyPaymentRequest struct {
	Amount    string `json:"amount" binding:"required"` // decimal string, e.g. "2500.00"
	VehicleID *uint  `json:"vehicle_id"`
	Notes     string `json:"notes"`
}

type ApplyPaymentResult struct {
	InvoiceID     uint            `json:"invoice_id"`
	PaymentIDs    []uint          `json:"payment_ids"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
	PaymentStatus string          `json:"payment_status"`
}

type PaymentResponse struct {
	ID              uint    `json:"id"`
	InvoiceID       *uint   `json:"invoice_id"`
	SourceInvoiceID *uint   `json:"source_invoice_id"`
	VehicleID       *uint   `json:"vehicle_id"`
	Amount          string  `json:"amount"`
	Status          string  `json:"status"`
	Notes           string  `json:"notes"`
	CreatedBy       *string `json:"created_by"`
	CreatedAt       string  `json:"created_at"`
}

// --- Interface ---

type PaymentService interface {
	ApplyPayment(ctx context.Context, userID string, invoiceID uint, req ApplyPaymentRequest) (ApplyPaymentResult, error)
	ListPayments(ctx context.Context, invoiceID uint) ([]PaymentResponse, error)
	ListAdvances(ctx context.Context, page, limit int) ([]PaymentResponse, int64, error)
}

type PaymentServiceConfig struct {
	// RetryDelay is the pause before the single retry after a conflict.
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

type paymentService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	txManager   repository.TransactionManager
	locks       *locker.Registry
	events      EventPublisher
	retryDelay  time.Duration
	log         zerolog.Logger
}

func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	txManager repository.TransactionManager,
	locks *locker.Registry,
	events EventPublisher,
	cfg PaymentServiceConfig,
) PaymentService {
	return &paymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		txManager:   txManager,
		locks:       locks,
		events:      events,
		retryDelay:  cfg.RetryDelay,
		log:         cfg.Logger,
	}
}

// --- Implementation ---

// ApplyPayment splits amount between the invoice's outstanding balance and an
// advance, writes the payment rows and the recomputed status in one
// transaction. A conflict is retried once with a fresh read.
func (s *paymentService) ApplyPayment(ctx context.Context, userID string, invoiceID uint, req ApplyPaymentRequest) (ApplyPaymentResult, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return ApplyPaymentResult{}, newPaymentError(opApplyPayment, ErrInvalidAmount, err)
	}
	if !amount.IsPositive() {
		return ApplyPaymentResult{}, newPaymentError(opApplyPayment, ErrInvalidAmount,
			fmt.Errorf("amount must be greater than 0, got %s", amount.String()))
	}
	if err := checkStorable("amount", amount); err != nil {
		return ApplyPaymentResult{}, newPaymentError(opApplyPayment, ErrInvalidAmount, err)
	}

	actor := parseActor(userID)

	var result ApplyPaymentResult
	attempt := 0
	operation := func() error {
		attempt++
		r, applyErr := s.applyOnce(ctx, invoiceID, amount, actor, req)
		if applyErr == nil {
			result = r
			return nil
		}
		if errors.Is(applyErr, ErrConflictingState) {
			s.log.Warn().Err(applyErr).
				Uint("invoice_id", invoiceID).
				Int("attempt", attempt).
				Msg("payment conflicted with a concurrent writer")
			return applyErr
		}
		return backoff.Permanent(applyErr)
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), 1)
	if err := backoff.Retry(operation, policy); err != nil {
		return ApplyPaymentResult{}, err
	}

	s.log.Info().
		Uint("invoice_id", invoiceID).
		Str("tendered", amount.String()).
		Str("applied", result.AppliedAmount.String()).
		Str("advance", result.AdvanceAmount.String()).
		Str("status", result.PaymentStatus).
		Msg("payment reconciled")

	if s.events != nil {
		s.events.Publish(EventPaymentApplied, result)
	}

	return result, nil
}

func (s *paymentService) applyOnce(ctx context.Context, invoiceID uint, amount decimal.Decimal, actor *uuid.UUID, req ApplyPaymentRequest) (ApplyPaymentResult, error) {
	release, err := s.locks.Acquire(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, locker.ErrLockTimeout) {
			return ApplyPaymentResult{}, newPaymentError(opApplyPayment, ErrConflictingState, err)
		}
		return ApplyPaymentResult{}, newPaymentError(opApplyPayment, ErrPersistenceFailure, err)
	}
	defer release()

	// Once the invoice is ours the sequence runs to completion.
	runCtx := context.WithoutCancel(ctx)

	var result ApplyPaymentResult
	err = s.txManager.RunInTx(runCtx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return classifyError(opApplyPayment, findErr)
		}

		prior, sumErr := s.paymentRepo.SumApplied(txCtx, invoice.ID)
		if sumErr != nil {
			return classifyError(opApplyPayment, sumErr)
		}

		alloc := Allocate(invoice.TotalAmount, prior, amount)
		result = ApplyPaymentResult{
			InvoiceID:     invoice.ID,
			PaymentIDs:    make([]uint, 0, 2),
			AppliedAmount: alloc.Applied,
			AdvanceAmount: alloc.Advance,
			PaymentStatus: alloc.Status,
		}

		if alloc.Applied.IsPositive() {
			applied := &model.Payment{
				InvoiceID: &invoice.ID,
				VehicleID: req.VehicleID,
				Amount:    alloc.Applied,
				Status:    model.PaymentRecordCompleted,
				Notes:     req.Notes,
				CreatedBy: actor,
			}
			if createErr := s.paymentRepo.Create(txCtx, applied); createErr != nil {
				return classifyError(opApplyPayment, fmt.Errorf("failed to create payment: %w", createErr))
			}
			result.PaymentIDs = append(result.PaymentIDs, applied.ID)
		}

		if alloc.Advance.IsPositive() {
			source := invoice.ID
			advance := &model.Payment{
				SourceInvoiceID: &source,
				VehicleID:       req.VehicleID,
				Amount:          alloc.Advance,
				Status:          model.PaymentRecordCompleted,
				Notes:           advanceNote(invoice, alloc),
				CreatedBy:       actor,
			}
			if createErr := s.paymentRepo.Create(txCtx, advance); createErr != nil {
				return classifyError(opApplyPayment, fmt.Errorf("failed to create advance payment: %w", createErr))
			}
			result.PaymentIDs = append(result.PaymentIDs, advance.ID)
		}

		updated, updateErr := s.invoiceRepo.UpdateStatus(txCtx, invoice.ID, invoice.Version, alloc.Status)
		if updateErr != nil {
			return classifyError(opApplyPayment, fmt.Errorf("failed to update invoice status: %w", updateErr))
		}
		if !updated {
			return newPaymentError(opApplyPayment, ErrConflictingState,
				fmt.Errorf("invoice %d changed since version %d", invoice.ID, invoice.Version))
		}

		return nil
	})
	if err != nil {
		return ApplyPaymentResult{}, classifyError(opApplyPayment, err)
	}

	return result, nil
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID uint) ([]PaymentResponse, error) {
	if _, err := s.invoiceRepo.FindByID(ctx, invoiceID); err != nil {
		return nil, classifyError("ListPayments", err)
	}

	payments, err := s.paymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, classifyError("ListPayments", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, nil
}

func (s *paymentService) ListAdvances(ctx context.Context, page, limit int) ([]PaymentResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	payments, total, err := s.paymentRepo.ListAdvances(ctx, page, limit)
	if err != nil {
		return nil, 0, classifyError("ListAdvances", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, total, nil
}

// --- Helpers ---

func advanceNote(invoice *model.Invoice, alloc Allocation) string {
	return fmt.Sprintf("Advance payment from invoice #%d (%s): overpayment of %s after applying %s",
		invoice.ID, invoice.InvoiceNo, alloc.Advance.StringFixed(2), alloc.Applied.StringFixed(2))
}

// parseActor tolerates an empty or malformed actor id; the payment is then unattributed.
func parseActor(userID string) *uuid.UUID {
	if userID == "" {
		return nil
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	return &parsed
}

func toPaymentResponse(p model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		SourceInvoiceID: p.SourceInvoiceID,
		VehicleID:       p.VehicleID,
		Amount:          p.Amount.StringFixed(2),
		Status:          p.Status,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	if p.CreatedBy != nil {
		s := p.CreatedBy.String()
		resp.CreatedBy = &s
	}
	return resp
}
