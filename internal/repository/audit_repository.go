package repository

import (
	"context"

	"gorm.io/gorm"

	"taskvault/internal/model"
)

// AuditRepository persists append-only audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository builds a GORM-backed audit repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
