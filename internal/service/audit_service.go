package service

import (
	"context"
	"fmt"
	"log"

	"taskvault/internal/model"
	"taskvault/internal/repository"
)

// maxAuditPageSize caps how many audit entries a single read returns.
const maxAuditPageSize = 50

// AuditService records security-relevant events. Writes are a side-effect
// sink: a failed audit write is logged and never fails the calling
// operation. Reads back a user's own trail.
type AuditService interface {
	LogEvent(ctx context.Context, entry *model.AuditLog)
	LogLoginSuccess(ctx context.Context, user *model.User, ip, userAgent string)
	LogLoginFailed(ctx context.Context, identifier, ip, userAgent, reason string)
	LogAccountLocked(ctx context.Context, user *model.User, ip, userAgent string)
	LogRegister(ctx context.Context, user *model.User, ip, userAgent string)
	LogTaskEvent(ctx context.Context, action model.AuditAction, userID, taskID uint, detail string)
	RecentEvents(ctx context.Context, userID uint, limit int) ([]model.AuditLog, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new audit service.
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) LogEvent(ctx context.Context, entry *model.AuditLog) {
	if err := s.repo.Create(ctx, entry); err != nil {
		log.Printf("audit write failed (action=%s): %v", entry.Action, err)
	}
}

func (s *auditService) LogLoginSuccess(ctx context.Context, user *model.User, ip, userAgent string) {
	s.LogEvent(ctx, &model.AuditLog{
		Action:    model.AuditLoginSuccess,
		UserID:    &user.ID,
		Details:   fmt.Sprintf("user %s logged in", user.Username),
		IPAddress: ip,
		UserAgent: userAgent,
	})
}

// LogLoginFailed records the real failure reason for the audit trail even
// though the caller only ever sees "invalid credentials".
func (s *auditService) LogLoginFailed(ctx context.Context, identifier, ip, userAgent, reason string) {
	s.LogEvent(ctx, &model.AuditLog{
		Action:    model.AuditLoginFailed,
		Details:   fmt.Sprintf("failed login for %s: %s", identifier, reason),
		IPAddress: ip,
		UserAgent: userAgent,
	})
}

func (s *auditService) LogAccountLocked(ctx context.Context, user *model.User, ip, userAgent string) {
	s.LogEvent(ctx, &model.AuditLog{
		Action:    model.AuditAccountLocked,
		UserID:    &user.ID,
		Details:   fmt.Sprintf("account %s locked after too many failed logins", user.Username),
		IPAddress: ip,
		UserAgent: userAgent,
	})
}

func (s *auditService) LogRegister(ctx context.Context, user *model.User, ip, userAgent string) {
	s.LogEvent(ctx, &model.AuditLog{
		Action:    model.AuditRegister,
		UserID:    &user.ID,
		Details:   fmt.Sprintf("user %s registered", user.Username),
		IPAddress: ip,
		UserAgent: userAgent,
	})
}

// RecentEvents returns the user's newest audit entries. Entries are
// scoped to the requesting user; there is no cross-user read path.
func (s *auditService) RecentEvents(ctx context.Context, userID uint, limit int) ([]model.AuditLog, error) {
	if limit < 1 || limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	entries, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	if entries == nil {
		entries = []model.AuditLog{}
	}
	return entries, nil
}

func (s *auditService) LogTaskEvent(ctx context.Context, action model.AuditAction, userID, taskID uint, detail string) {
	resourceType := "task"
	s.LogEvent(ctx, &model.AuditLog{
		Action:       action,
		UserID:       &userID,
		Details:      detail,
		ResourceType: resourceType,
		ResourceID:   &taskID,
	})
}
