package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskvault/internal/model"
)

// UserRepository defines user persistence operations, including the
// lockout counter mutations used by the authentication service.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	IncrementFailedAttempts(ctx context.Context, user *model.User) error
	LockAccount(ctx context.Context, user *model.User, until time.Time) error
	UnlockAccount(ctx context.Context, user *model.User) error
	RecordLogin(ctx context.Context, user *model.User, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier resolves a user by email or username in a single query.
func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", identifier, identifier).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) IncrementFailedAttempts(ctx context.Context, user *model.User) error {
	user.FailedAttempts++
	return r.db.WithContext(ctx).Model(user).
		Update("failed_attempts", user.FailedAttempts).Error
}

func (r *userRepository) LockAccount(ctx context.Context, user *model.User, until time.Time) error {
	user.LockedUntil = &until
	return r.db.WithContext(ctx).Model(user).
		Update("locked_until", until).Error
}

// UnlockAccount clears an expired lock and resets the failed counter.
func (r *userRepository) UnlockAccount(ctx context.Context, user *model.User) error {
	user.LockedUntil = nil
	user.FailedAttempts = 0
	return r.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"locked_until":    nil,
		"failed_attempts": 0,
	}).Error
}

// RecordLogin stamps a successful login and resets the failed counter.
func (r *userRepository) RecordLogin(ctx context.Context, user *model.User, at time.Time) error {
	user.LastLogin = &at
	user.FailedAttempts = 0
	return r.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"last_login":      at,
		"failed_attempts": 0,
	}).Error
}
