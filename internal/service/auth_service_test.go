package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskvault/internal/auth"
	apperrors "taskvault/internal/errors"
	"taskvault/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository. The
// lockout-related methods also apply the mutation the real repository
// performs, so stateful login sequences behave realistically.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementFailedAttempts(ctx context.Context, user *model.User) error {
	user.FailedAttempts++
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) LockAccount(ctx context.Context, user *model.User, until time.Time) error {
	user.LockedUntil = &until
	args := m.Called(ctx, user, until)
	return args.Error(0)
}

func (m *MockUserRepository) UnlockAccount(ctx context.Context, user *model.User) error {
	user.LockedUntil = nil
	user.FailedAttempts = 0
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, user *model.User, at time.Time) error {
	user.LastLogin = &at
	user.FailedAttempts = 0
	args := m.Called(ctx, user, at)
	return args.Error(0)
}

// spyAudit records the events it sees; audit writes never fail.
type spyAudit struct {
	actions []model.AuditAction
	reasons []string
}

func (s *spyAudit) LogEvent(_ context.Context, entry *model.AuditLog) {
	s.actions = append(s.actions, entry.Action)
}

func (s *spyAudit) LogLoginSuccess(_ context.Context, _ *model.User, _, _ string) {
	s.actions = append(s.actions, model.AuditLoginSuccess)
}

func (s *spyAudit) LogLoginFailed(_ context.Context, _, _, _, reason string) {
	s.actions = append(s.actions, model.AuditLoginFailed)
	s.reasons = append(s.reasons, reason)
}

func (s *spyAudit) LogAccountLocked(_ context.Context, _ *model.User, _, _ string) {
	s.actions = append(s.actions, model.AuditAccountLocked)
}

func (s *spyAudit) LogRegister(_ context.Context, _ *model.User, _, _ string) {
	s.actions = append(s.actions, model.AuditRegister)
}

func (s *spyAudit) LogTaskEvent(_ context.Context, action model.AuditAction, _, _ uint, _ string) {
	s.actions = append(s.actions, action)
}

func (s *spyAudit) RecentEvents(context.Context, uint, int) ([]model.AuditLog, error) {
	return nil, nil
}

func (s *spyAudit) countAction(action model.AuditAction) int {
	n := 0
	for _, a := range s.actions {
		if a == action {
			n++
		}
	}
	return n
}

const (
	testMaxAttempts = 5
	testLockoutFor  = 30 * time.Minute
)

func newTestAuthService(repo *MockUserRepository, audit AuditService) *authService {
	jwtService := auth.NewJWTService("test-secret", 30*time.Minute, 7*24*time.Hour)
	hasher := auth.NewPasswordHasher(10)
	svc := NewAuthService(repo, jwtService, hasher, audit, testMaxAttempts, testLockoutFor)
	return svc.(*authService)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	assert.NoError(t, err)
	return string(hashed)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		username      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful registration",
			email:    "new@example.com",
			username: "newuser",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByUsername", mock.Anything, "newuser").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:     "email already taken",
			email:    "taken@example.com",
			username: "newuser",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{Email: "taken@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:     "username already taken",
			email:    "new@example.com",
			username: "takenuser",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByUsername", mock.Anything, "takenuser").Return(&model.User{Username: "takenuser"}, nil)
			},
			expectedError: apperrors.ErrUsernameTaken,
		},
		{
			// Email is checked first, so when both collide the email
			// conflict is the one reported.
			name:     "both taken reports email",
			email:    "taken@example.com",
			username: "takenuser",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{Email: "taken@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			audit := &spyAudit{}

			svc := newTestAuthService(mockRepo, audit)
			user, err := svc.Register(context.Background(), tt.email, tt.username, "Full Name", "S3cure-pass!", "1.2.3.4", "go-test")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.email, user.Email)
				assert.Equal(t, tt.username, user.Username)
				assert.True(t, user.IsActive)
				assert.False(t, user.IsVerified)
				assert.Zero(t, user.FailedAttempts)
				assert.NotEqual(t, "S3cure-pass!", user.PasswordHash)
				assert.Equal(t, 1, audit.countAction(model.AuditRegister))
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	audit := &spyAudit{}
	user := &model.User{
		ID:           1,
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: hashOf(t, "password123!A"),
		IsActive:     true,
	}
	mockRepo.On("FindByIdentifier", mock.Anything, "alice").Return(user, nil)
	mockRepo.On("RecordLogin", mock.Anything, user, mock.Anything).Return(nil)

	svc := newTestAuthService(mockRepo, audit)
	tokens, loggedIn, err := svc.Login(context.Background(), "alice", "password123!A", "1.2.3.4", "go-test")

	assert.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Zero(t, user.FailedAttempts)
	assert.Equal(t, 1, audit.countAction(model.AuditLoginSuccess))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login_UnknownIdentifier(t *testing.T) {
	mockRepo := new(MockUserRepository)
	audit := &spyAudit{}
	mockRepo.On("FindByIdentifier", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

	svc := newTestAuthService(mockRepo, audit)
	tokens, user, err := svc.Login(context.Background(), "ghost", "whatever", "1.2.3.4", "go-test")

	// Same external error as a wrong password; the audit trail keeps the
	// real reason.
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Nil(t, tokens)
	assert.Nil(t, user)
	assert.Equal(t, []string{"user not found"}, audit.reasons)
}

func TestAuthService_Login_WrongPasswordCountsDown(t *testing.T) {
	mockRepo := new(MockUserRepository)
	audit := &spyAudit{}
	user := &model.User{
		ID:           1,
		Username:     "alice",
		PasswordHash: hashOf(t, "password123!A"),
		IsActive:     true,
	}
	mockRepo.On("FindByIdentifier", mock.Anything, "alice").Return(user, nil)
	mockRepo.On("IncrementFailedAttempts", mock.Anything, user).Return(nil)

	svc := newTestAuthService(mockRepo, audit)
	_, _, err := svc.Login(context.Background(), "alice", "wrong", "1.2.3.4", "go-test")

	var credErr *apperrors.CredentialsError
	assert.ErrorAs(t, err, &credErr)
	assert.Equal(t, testMaxAttempts-1, credErr.Remaining)
	assert.Equal(t, 1, user.FailedAttempts)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	audit := &spyAudit{}
	user := &model.User{
		ID:           1,
		Username:     "alice",
		PasswordHash: hashOf(t, "password123!A"),
		IsActive:     false,
	}
	mockRepo.On("FindByIdentifier", mock.Anything, "alice").Return(user, nil)

	svc := newTestAuthService(mockRepo, audit)
	_, _, err := svc.Login(context.Background(), "alice", "password123!A", "1.2.3.4", "go-test")

	assert.ErrorIs(t, err, apperrors.ErrAccountInactive)
}

func TestAuthService_LockoutSequence(t *testing.T) {
	mockRepo := new(MockUserRepository)
	audit := &spyAudit{}
	user := &model.User{
		ID:           1,
		Username:     "alice",
		PasswordHash: hashOf(t, "password123!A"),
		IsActive:     true,
	}
	mockRepo.On("FindByIdentifier", mock.Anything, "alice").Return(user, nil)
	mockRepo.On("IncrementFailedAttempts", mock.Anything, user).Return(nil)
	mockRepo.On("LockAccount", mock.Anything, user, mock.Anything).Return(nil)
	mockRepo.On("UnlockAccount", mock.Anything, user).Return(nil)
	mockRepo.On("RecordLogin", mock.Anything, user, mock.Anything).Return(nil)

	svc := newTestAuthService(mockRepo, audit)
	start := time.Now()
	svc.now = func() time.Time { return start }

	// Four wrong passwords count down the remaining attempts.
	for i := 1; i < testMaxAttempts; i++ {
		_, _, err := svc.Login(context.Background(), "alice", "wrong", "1.2.3.4", "go-test")
		var credErr *apperrors.CredentialsError
		assert.ErrorAs(t, err, &credErr)
		assert.Equal(t, testMaxAttempts-i, credErr.Remaining)
	}

	// The fifth failure trips the lock.
	_, _, err := svc.Login(context.Background(), "alice", "wrong", "1.2.3.4", "go-test")
	var lockErr *apperrors.LockedError
	assert.ErrorAs(t, err, &lockErr)
	assert.Equal(t, start.Add(testLockoutFor), lockErr.Until)
	assert.Equal(t, 1, audit.countAction(model.AuditAccountLocked))

	// Even the correct password is rejected while the lock holds, and the
	// rejection is a lock error, not a credentials error.
	attemptsBefore := user.FailedAttempts
	_, _, err = svc.Login(context.Background(), "alice", "password123!A", "1.2.3.4", "go-test")
	assert.ErrorAs(t, err, &lockErr)
	assert.Equal(t, attemptsBefore, user.FailedAttempts)

	// Once the lock expires, the next correct login self-heals the lock
	// and resets the counter.
	svc.now = func() time.Time { return start.Add(testLockoutFor + time.Minute) }
	tokens, _, err := svc.Login(context.Background(), "alice", "password123!A", "1.2.3.4", "go-test")
	assert.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Nil(t, user.LockedUntil)
	assert.Zero(t, user.FailedAttempts)
}

func TestAuthService_Refresh(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 30*time.Minute, 7*24*time.Hour)

	activeUser := &model.User{ID: 1, Username: "alice", IsActive: true}
	inactiveUser := &model.User{ID: 2, Username: "bob", IsActive: false}

	refreshToken, err := jwtService.GenerateRefreshToken(1)
	assert.NoError(t, err)
	inactiveRefresh, err := jwtService.GenerateRefreshToken(2)
	assert.NoError(t, err)
	accessToken, err := jwtService.GenerateAccessToken(1, "alice")
	assert.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:  "valid refresh token",
			token: refreshToken,
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, uint(1)).Return(activeUser, nil)
			},
		},
		{
			name:    "access token is not accepted",
			token:   accessToken,
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name:    "garbage token",
			token:   "garbage",
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name:  "inactive user",
			token: inactiveRefresh,
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, uint(2)).Return(inactiveUser, nil)
			},
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name:  "deleted user",
			token: refreshToken,
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, uint(1)).Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: apperrors.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			if tt.setupMock != nil {
				tt.setupMock(mockRepo)
			}
			svc := newTestAuthService(mockRepo, &spyAudit{})

			accessToken, err := svc.Refresh(context.Background(), tt.token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, accessToken)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, accessToken)
				userID, ok := svc.VerifyAccessToken(accessToken)
				assert.True(t, ok)
				assert.Equal(t, uint(1), userID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_VerifyAccessToken(t *testing.T) {
	svc := newTestAuthService(new(MockUserRepository), &spyAudit{})

	accessToken, err := svc.jwtService.GenerateAccessToken(9, "carol")
	assert.NoError(t, err)
	refreshToken, err := svc.jwtService.GenerateRefreshToken(9)
	assert.NoError(t, err)

	userID, ok := svc.VerifyAccessToken(accessToken)
	assert.True(t, ok)
	assert.Equal(t, uint(9), userID)

	_, ok = svc.VerifyAccessToken(refreshToken)
	assert.False(t, ok)

	_, ok = svc.VerifyAccessToken("nonsense")
	assert.False(t, ok)
}
