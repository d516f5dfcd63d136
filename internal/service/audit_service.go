package service

import (
	"context"

	"billing/internal/model"
	"billing/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
	GetInvoiceHistory(ctx context.Context, invoiceID string) ([]AuditLogResponse, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns the newest entries first
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.auditRepo.Find(ctx, repository.AuditQuery{Page: page, Limit: limit})
	if err != nil {
		return nil, 0, classifyError("GetAuditLogs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditLogResponse(l))
	}

	return res, total, nil
}

func (s *auditService) GetInvoiceHistory(ctx context.Context, invoiceID string) ([]AuditLogResponse, error) {
	logs, _, err := s.auditRepo.Find(ctx, repository.AuditQuery{EntityID: invoiceID, Chronological: true})
	if err != nil {
		return nil, classifyError("GetInvoiceHistory", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditLogResponse(l))
	}
	return res, nil
}

func toAuditLogResponse(l model.AuditLog) AuditLogResponse {
	userID := ""
	if l.UserID != nil {
		userID = l.UserID.String()
	}
	return AuditLogResponse{
		ID:         l.ID.String(),
		UserID:     userID,
		Action:     l.Action,
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		Details:    l.Details,
		CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
