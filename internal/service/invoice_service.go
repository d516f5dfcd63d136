package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"billing/internal/locker"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateInvoiceRequest struct {
	InvoiceNo   string `json:"invoice_no"` // generated when empty
	VehicleID   *uint  `json:"vehicle_id"`
	TotalAmount string `json:"total_amount" binding:"required"`
}

type InvoiceFilter struct {
	PaymentStatus string // UNPAID, PARTIAL, PAID or empty for all
	Page          int
	Limit         int
}

type InvoiceResponse struct {
	ID            uint   `json:"id"`
	InvoiceNo     string `json:"invoice_no"`
	VehicleID     *uint  `json:"vehicle_id"`
	TotalAmount   string `json:"total_amount"`
	TotalApplied  string `json:"total_applied"`
	Outstanding   string `json:"outstanding"`
	PaymentStatus string `json:"payment_status"`
	Version       int64  `json:"version"`
	CreatedAt     string `json:"created_at"`
}

// OverrideStatusRequest is the administrative escape hatch for setting a
// status that does not follow from the payments.
type OverrideStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=UNPAID PARTIAL PAID"`
	Reason string `json:"reason" binding:"required"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id uint) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	OverrideStatus(ctx context.Context, userID string, id uint, req OverrideStatusRequest) (InvoiceResponse, error)
	RecomputeStatus(ctx context.Context, userID string, id uint) (InvoiceResponse, bool, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	locks       *locker.Registry
	events      EventPublisher
	log         zerolog.Logger
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	locks *locker.Registry,
	events EventPublisher,
	log zerolog.Logger,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		locks:       locks,
		events:      events,
		log:         log,
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (InvoiceResponse, error) {
	total, err := decimal.NewFromString(strings.TrimSpace(req.TotalAmount))
	if err != nil {
		return InvoiceResponse{}, newPaymentError("CreateInvoice", ErrInvalidAmount, err)
	}
	if total.IsNegative() {
		return InvoiceResponse{}, newPaymentError("CreateInvoice", ErrInvalidAmount,
			fmt.Errorf("total_amount must not be negative, got %s", total.String()))
	}
	if err := checkStorable("total_amount", total); err != nil {
		return InvoiceResponse{}, newPaymentError("CreateInvoice", ErrInvalidAmount, err)
	}

	invoiceNo := strings.TrimSpace(req.InvoiceNo)
	if invoiceNo == "" {
		invoiceNo, err = s.generateInvoiceNo(ctx)
		if err != nil {
			return InvoiceResponse{}, classifyError("CreateInvoice", fmt.Errorf("failed to generate invoice number: %w", err))
		}
	}

	invoice := model.Invoice{
		InvoiceNo:     invoiceNo,
		VehicleID:     req.VehicleID,
		TotalAmount:   total,
		PaymentStatus: DeriveStatus(total, decimal.Zero),
	}
	if err := s.invoiceRepo.Create(ctx, &invoice); err != nil {
		return InvoiceResponse{}, classifyError("CreateInvoice", fmt.Errorf("failed to create invoice: %w", err))
	}

	return toInvoiceResponse(invoice, decimal.Zero), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id uint) (InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return InvoiceResponse{}, classifyError("GetInvoice", err)
	}

	applied, err := s.paymentRepo.SumApplied(ctx, id)
	if err != nil {
		return InvoiceResponse{}, classifyError("GetInvoice", err)
	}

	return toInvoiceResponse(*invoice, applied), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.PaymentStatus != "" && !model.IsValidPaymentStatus(filter.PaymentStatus) {
		return nil, 0, newPaymentError("ListInvoices", ErrInvalidRequest,
			fmt.Errorf("unknown payment status %q", filter.PaymentStatus))
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		PaymentStatus: filter.PaymentStatus,
		Page:          filter.Page,
		Limit:         filter.Limit,
	})
	if err != nil {
		return nil, 0, classifyError("ListInvoices", fmt.Errorf("failed to fetch invoices: %w", err))
	}

	ids := make([]uint, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	applied, err := s.paymentRepo.SumAppliedByInvoice(ctx, ids)
	if err != nil {
		return nil, 0, classifyError("ListInvoices", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv, applied[inv.ID]))
	}
	return result, total, nil
}

// OverrideStatus sets the status regardless of payments and records who did
// it and why. The derived rule is back in force at the next payment.
func (s *invoiceService) OverrideStatus(ctx context.Context, userID string, id uint, req OverrideStatusRequest) (InvoiceResponse, error) {
	const op = "OverrideStatus"

	if !model.IsValidPaymentStatus(req.Status) {
		return InvoiceResponse{}, newPaymentError(op, ErrInvalidRequest, fmt.Errorf("unknown payment status %q", req.Status))
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return InvoiceResponse{}, newPaymentError(op, ErrInvalidRequest, errors.New("reason is required"))
	}

	var previous string
	invoice, applied, err := s.writeStatus(ctx, op, id, func(inv *model.Invoice, _ decimal.Decimal) (string, bool) {
		previous = inv.PaymentStatus
		return req.Status, true
	}, func(inv *model.Invoice, applied decimal.Decimal) *model.AuditLog {
		details, _ := json.Marshal(map[string]interface{}{
			"previous_status": previous,
			"new_status":      req.Status,
			"derived_status":  DeriveStatus(inv.TotalAmount, applied),
			"reason":          reason,
		})
		return &model.AuditLog{
			UserID:     parseActor(userID),
			Action:     model.ActionOverrideInvoiceStatus,
			EntityID:   strconv.FormatUint(uint64(inv.ID), 10),
			EntityName: inv.InvoiceNo,
			Details:    string(details),
		}
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.log.Warn().
		Uint("invoice_id", id).
		Str("previous_status", previous).
		Str("status", req.Status).
		Str("reason", reason).
		Msg("invoice status overridden")

	if s.events != nil {
		s.events.Publish(EventInvoiceStatusChanged, map[string]interface{}{
			"invoice_id":     id,
			"payment_status": req.Status,
			"source":         model.ActionOverrideInvoiceStatus,
		})
	}

	return toInvoiceResponse(*invoice, applied), nil
}

// RecomputeStatus re-derives the status from the payments. It reports whether
// the stored status changed; unchanged invoices are neither written nor audited.
func (s *invoiceService) RecomputeStatus(ctx context.Context, userID string, id uint) (InvoiceResponse, bool, error) {
	const op = "RecomputeStatus"

	var previous, derived string
	changed := false
	invoice, applied, err := s.writeStatus(ctx, op, id, func(inv *model.Invoice, applied decimal.Decimal) (string, bool) {
		previous = inv.PaymentStatus
		derived = DeriveStatus(inv.TotalAmount, applied)
		changed = derived != previous
		return derived, changed
	}, func(inv *model.Invoice, applied decimal.Decimal) *model.AuditLog {
		details, _ := json.Marshal(map[string]interface{}{
			"previous_status": previous,
			"new_status":      derived,
			"total_amount":    inv.TotalAmount.StringFixed(2),
			"total_applied":   applied.StringFixed(2),
		})
		return &model.AuditLog{
			UserID:     parseActor(userID),
			Action:     model.ActionRecomputeInvoiceStatus,
			EntityID:   strconv.FormatUint(uint64(inv.ID), 10),
			EntityName: inv.InvoiceNo,
			Details:    string(details),
		}
	})
	if err != nil {
		return InvoiceResponse{}, false, err
	}

	if changed {
		s.log.Info().
			Uint("invoice_id", id).
			Str("previous_status", previous).
			Str("status", derived).
			Msg("invoice status recomputed")

		if s.events != nil {
			s.events.Publish(EventInvoiceStatusChanged, map[string]interface{}{
				"invoice_id":     id,
				"payment_status": derived,
				"source":         model.ActionRecomputeInvoiceStatus,
			})
		}
	}

	return toInvoiceResponse(*invoice, applied), changed, nil
}

// writeStatus runs an audited status change under the same per-invoice lock
// and row lock as ApplyPayment. decide returns the new status and whether to
// write it at all.
func (s *invoiceService) writeStatus(
	ctx context.Context,
	op string,
	id uint,
	decide func(inv *model.Invoice, applied decimal.Decimal) (string, bool),
	audit func(inv *model.Invoice, applied decimal.Decimal) *model.AuditLog,
) (*model.Invoice, decimal.Decimal, error) {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		if errors.Is(err, locker.ErrLockTimeout) {
			return nil, decimal.Zero, newPaymentError(op, ErrConflictingState, err)
		}
		return nil, decimal.Zero, newPaymentError(op, ErrPersistenceFailure, err)
	}
	defer release()

	var invoice *model.Invoice
	applied := decimal.Zero
	err = s.txManager.RunInTx(context.WithoutCancel(ctx), func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.invoiceRepo.FindByIDForUpdate(txCtx, id)
		if findErr != nil {
			return classifyError(op, findErr)
		}

		var sumErr error
		applied, sumErr = s.paymentRepo.SumApplied(txCtx, id)
		if sumErr != nil {
			return classifyError(op, sumErr)
		}

		status, write := decide(invoice, applied)
		if !write {
			return nil
		}

		updated, updateErr := s.invoiceRepo.UpdateStatus(txCtx, id, invoice.Version, status)
		if updateErr != nil {
			return classifyError(op, fmt.Errorf("failed to update invoice status: %w", updateErr))
		}
		if !updated {
			return newPaymentError(op, ErrConflictingState, fmt.Errorf("invoice %d changed since version %d", id, invoice.Version))
		}
		invoice.PaymentStatus = status
		invoice.Version++

		if auditErr := s.auditRepo.Append(txCtx, audit(invoice, applied)); auditErr != nil {
			return classifyError(op, fmt.Errorf("failed to write audit log: %w", auditErr))
		}
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, classifyError(op, err)
	}

	return invoice, applied, nil
}

func (s *invoiceService) generateInvoiceNo(ctx context.Context) (string, error) {
	prefix := "INV-" + time.Now().Format("20060102") + "-"

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// --- Mapping ---

func toInvoiceResponse(inv model.Invoice, applied decimal.Decimal) InvoiceResponse {
	outstanding := inv.TotalAmount.Sub(applied)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNo:     inv.InvoiceNo,
		VehicleID:     inv.VehicleID,
		TotalAmount:   inv.TotalAmount.StringFixed(2),
		TotalApplied:  applied.StringFixed(2),
		Outstanding:   outstanding.StringFixed(2),
		PaymentStatus: inv.PaymentStatus,
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
}
