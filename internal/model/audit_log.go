package model

import "time"

// AuditAction enumerates the security-relevant events recorded in the audit log.
type AuditAction string

const (
	// Authentication
	AuditLoginSuccess AuditAction = "login_success"
	AuditLoginFailed  AuditAction = "login_failed"
	AuditLogout       AuditAction = "logout"
	AuditRegister     AuditAction = "register"
	AuditRefreshToken AuditAction = "refresh_token"

	// Tasks
	AuditCreateTask   AuditAction = "create_task"
	AuditUpdateTask   AuditAction = "update_task"
	AuditDeleteTask   AuditAction = "delete_task"
	AuditCompleteTask AuditAction = "complete_task"

	// Account
	AuditUpdateProfile  AuditAction = "update_profile"
	AuditChangePassword AuditAction = "change_password"
	AuditAccountLocked  AuditAction = "account_locked"
	AuditAccessDenied   AuditAction = "access_denied"
)

// AuditLog is an append-only record of a security-relevant event.
// UserID is nullable so unauthenticated events (failed logins for
// unknown identifiers) can still be recorded.
type AuditLog struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	Action       AuditAction `json:"action" gorm:"type:varchar(40);not null;index"`
	Details      string      `json:"details,omitempty" gorm:"type:text"`
	IPAddress    string      `json:"ip_address,omitempty" gorm:"size:45"` // IPv6 compatible
	UserAgent    string      `json:"user_agent,omitempty" gorm:"size:500"`
	ResourceType string      `json:"resource_type,omitempty" gorm:"size:50"`
	ResourceID   *uint       `json:"resource_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at" gorm:"index"`

	UserID *uint `json:"user_id,omitempty" gorm:"index"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
