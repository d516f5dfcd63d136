package repository

import (
	"context"

	"billing/internal/model"

	"gorm.io/gorm"
)

// AuditQuery selects audit entries. Empty fields do not filter; a zero Limit
// returns every match.
type AuditQuery struct {
	EntityID      string
	Action        string
	Page          int
	Limit         int
	Chronological bool // oldest first instead of newest first
}

type AuditRepository interface {
	Append(ctx context.Context, entry *model.AuditLog) error
	Find(ctx context.Context, q AuditQuery) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Append joins the caller's transaction when ctx carries one, so an entry
// is only kept if the status change it describes commits.
func (r *auditRepository) Append(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) Find(ctx context.Context, q AuditQuery) ([]model.AuditLog, int64, error) {
	scope := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if q.EntityID != "" {
		scope = scope.Where("entity_id = ?", q.EntityID)
	}
	if q.Action != "" {
		scope = scope.Where("action = ?", q.Action)
	}

	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at desc, id desc"
	if q.Chronological {
		order = "created_at asc, id asc"
	}
	rows := scope.Session(&gorm.Session{}).Order(order)
	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		rows = rows.Offset((page - 1) * q.Limit).Limit(q.Limit)
	}

	var entries []model.AuditLog
	if err := rows.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
