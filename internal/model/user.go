package model

import "time"

// User represents an authenticated user in the system.
type User struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Email          string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username       string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	PasswordHash   string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	FullName       string     `json:"full_name,omitempty" gorm:"size:100"`
	IsActive       bool       `json:"is_active" gorm:"default:true"`
	IsVerified     bool       `json:"is_verified" gorm:"default:false"`
	FailedAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil    *time.Time `json:"-"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Tasks []Task `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// IsLocked reports whether the lockout window is still in effect.
// A lock timestamp in the past counts as unlocked; callers clear it
// lazily on the next read.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
