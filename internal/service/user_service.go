package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskvault/internal/auth"
	apperrors "taskvault/internal/errors"
	"taskvault/internal/model"
	"taskvault/internal/repository"
)

// ProfileUpdateInput is a partial profile update: only non-nil fields are
// applied.
type ProfileUpdateInput struct {
	Email    *string
	FullName *string
}

// UserService exposes profile operations for the authenticated user.
type UserService interface {
	GetProfile(ctx context.Context, id uint) (*model.User, error)
	UpdateProfile(ctx context.Context, id uint, in ProfileUpdateInput, ip string) (*model.User, error)
	ChangePassword(ctx context.Context, id uint, currentPassword, newPassword, ip string) error
}

type userService struct {
	repo   repository.UserRepository
	hasher *auth.PasswordHasher
	audit  AuditService
}

// NewUserService builds a UserService.
func NewUserService(repo repository.UserRepository, hasher *auth.PasswordHasher, audit AuditService) UserService {
	return &userService{repo: repo, hasher: hasher, audit: audit}
}

func (s *userService) GetProfile(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token subject no longer exists.
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the present fields. A changed email is re-checked
// for uniqueness.
func (s *userService) UpdateProfile(ctx context.Context, id uint, in ProfileUpdateInput, ip string) (*model.User, error) {
	user, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && *in.Email != user.Email {
		if _, err := s.repo.FindByEmail(ctx, *in.Email); err == nil {
			return nil, apperrors.ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = *in.Email
	}
	if in.FullName != nil {
		user.FullName = *in.FullName
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.audit.LogEvent(ctx, &model.AuditLog{
		Action:    model.AuditUpdateProfile,
		UserID:    &user.ID,
		Details:   "profile updated",
		IPAddress: ip,
	})

	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *userService) ChangePassword(ctx context.Context, id uint, currentPassword, newPassword, ip string) error {
	user, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperrors.ErrWrongPassword
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hashed
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.audit.LogEvent(ctx, &model.AuditLog{
		Action:    model.AuditChangePassword,
		UserID:    &user.ID,
		Details:   "password changed",
		IPAddress: ip,
	})

	return nil
}
