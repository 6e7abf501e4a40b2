package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskvault/internal/auth"
	apperrors "taskvault/internal/errors"
	"taskvault/internal/model"
	"taskvault/internal/repository"
)

// TokenPair is the credential set returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthService handles registration, login, token refresh and the account
// lockout policy.
type AuthService interface {
	Register(ctx context.Context, email, username, fullName, password, ip, userAgent string) (*model.User, error)
	Login(ctx context.Context, identifier, password, ip, userAgent string) (*TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	VerifyAccessToken(token string) (uint, bool)
}

type authService struct {
	userRepo    repository.UserRepository
	jwtService  *auth.JWTService
	hasher      *auth.PasswordHasher
	audit       AuditService
	maxAttempts int
	lockoutFor  time.Duration
	now         func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	hasher *auth.PasswordHasher,
	audit AuditService,
	maxAttempts int,
	lockoutFor time.Duration,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		jwtService:  jwtService,
		hasher:      hasher,
		audit:       audit,
		maxAttempts: maxAttempts,
		lockoutFor:  lockoutFor,
		now:         time.Now,
	}
}

// Register creates a new user with a hashed password. Email uniqueness is
// checked before username, so when both collide the email error wins.
func (s *authService) Register(ctx context.Context, email, username, fullName, password, ip, userAgent string) (*model.User, error) {
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, apperrors.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		FullName:     fullName,
		PasswordHash: hashed,
		IsActive:     true,
		IsVerified:   false,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.LogRegister(ctx, user, ip, userAgent)

	return user, nil
}

// Login authenticates a user and returns an access/refresh token pair.
// The external error for a bad identifier and a bad password is identical;
// the audit trail keeps the distinction.
func (s *authService) Login(ctx context.Context, identifier, password, ip, userAgent string) (*TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.audit.LogLoginFailed(ctx, identifier, ip, userAgent, "user not found")
			return nil, nil, apperrors.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	now := s.now()

	if user.IsLocked(now) {
		s.audit.LogLoginFailed(ctx, identifier, ip, userAgent, "account locked")
		return nil, nil, &apperrors.LockedError{Until: *user.LockedUntil}
	}

	// An expired lock self-heals on the next check: clear it and reset the
	// counter before the password is verified.
	if user.LockedUntil != nil {
		if err := s.userRepo.UnlockAccount(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("unlock account: %w", err)
		}
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		if err := s.userRepo.IncrementFailedAttempts(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("increment failed attempts: %w", err)
		}

		if user.FailedAttempts >= s.maxAttempts {
			until := now.Add(s.lockoutFor)
			if err := s.userRepo.LockAccount(ctx, user, until); err != nil {
				return nil, nil, fmt.Errorf("lock account: %w", err)
			}
			s.audit.LogAccountLocked(ctx, user, ip, userAgent)
			return nil, nil, &apperrors.LockedError{Until: until}
		}

		s.audit.LogLoginFailed(ctx, identifier, ip, userAgent, "wrong password")
		return nil, nil, &apperrors.CredentialsError{Remaining: s.maxAttempts - user.FailedAttempts}
	}

	if !user.IsActive {
		s.audit.LogLoginFailed(ctx, identifier, ip, userAgent, "account deactivated")
		return nil, nil, apperrors.ErrAccountInactive
	}

	if err := s.userRepo.RecordLogin(ctx, user, now); err != nil {
		return nil, nil, fmt.Errorf("record login: %w", err)
	}

	s.audit.LogLoginSuccess(ctx, user, ip, userAgent)

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, user, nil
}

// Refresh issues a new access token from a valid refresh token. The
// refresh token itself is not rotated.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !s.jwtService.ValidateTokenType(refreshToken, auth.TokenTypeRefresh) {
		return "", apperrors.ErrInvalidToken
	}

	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return "", apperrors.ErrInvalidToken
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	s.audit.LogEvent(ctx, &model.AuditLog{
		Action:  model.AuditRefreshToken,
		UserID:  &user.ID,
		Details: "access token refreshed",
	})

	return accessToken, nil
}

// VerifyAccessToken validates an access token and returns the user ID it
// belongs to. Used at the request-authentication boundary.
func (s *authService) VerifyAccessToken(token string) (uint, bool) {
	if !s.jwtService.ValidateTokenType(token, auth.TokenTypeAccess) {
		return 0, false
	}
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}
