package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"taskvault/internal/errors"
	"taskvault/internal/model"
	"taskvault/internal/service"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
	auditor     service.AuditService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, userService service.UserService, auditor service.AuditService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		auditor:     auditor,
	}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"full_name" validate:"omitempty,max=100"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// LoginRequest represents a login request. The identifier may be an email
// or a username.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ProfileUpdateRequest represents a partial profile update.
type ProfileUpdateRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
}

// ChangePasswordRequest represents a password change request.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !usernamePattern.MatchString(req.Username) {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "username may only contain letters, digits, hyphens and underscores",
			Code:  "INVALID_USERNAME",
		})
	}
	if msg := passwordStrengthError(req.Password); msg != "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: msg,
			Code:  "WEAK_PASSWORD",
		})
	}

	user, err := h.authService.Register(
		c.Request().Context(),
		req.Email,
		strings.ToLower(req.Username),
		req.FullName,
		req.Password,
		c.RealIP(),
		c.Request().UserAgent(),
	)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Login with email or username
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tokens, _, err := h.authService.Login(
		c.Request().Context(),
		req.Username,
		req.Password,
		c.RealIP(),
		c.Request().UserAgent(),
	)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, tokens)
}

// Refresh godoc
// @Summary Refresh the access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"access_token": accessToken,
		"token_type":   "bearer",
	})
}

// Logout godoc
// @Summary Logout the current user
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := currentUserID(c)
	h.auditor.LogEvent(c.Request().Context(), &model.AuditLog{
		Action:    model.AuditLogout,
		UserID:    &userID,
		Details:   "user logged out",
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	return c.NoContent(http.StatusNoContent)
}

// Me godoc
// @Summary Get the authenticated user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.userService.GetProfile(c.Request().Context(), currentUserID(c))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update the authenticated user's profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileUpdateRequest true "Profile fields"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /auth/me [put]
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req ProfileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userService.UpdateProfile(c.Request().Context(), currentUserID(c), service.ProfileUpdateInput{
		Email:    req.Email,
		FullName: req.FullName,
	}, c.RealIP())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change the authenticated user's password
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Password change"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if msg := passwordStrengthError(req.NewPassword); msg != "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: msg,
			Code:  "WEAK_PASSWORD",
		})
	}

	if err := h.userService.ChangePassword(c.Request().Context(), currentUserID(c), req.CurrentPassword, req.NewPassword, c.RealIP()); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.NoContent(http.StatusNoContent)
}

// AuditHistory godoc
// @Summary Recent security events for the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries (1-50, default 50)"
// @Success 200 {array} model.AuditLog
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me/audit [get]
func (h *AuthHandler) AuditHistory(c echo.Context) error {
	limit := intQueryParam(c, "limit", 50)
	entries, err := h.auditor.RecentEvents(c.Request().Context(), currentUserID(c), limit)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, entries)
}

// passwordStrengthError returns a human-readable message when the password
// misses a required character class, or "" when it passes.
func passwordStrengthError(password string) string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(`!@#$%^&*(),.?":{}|<>`, r):
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return "password must contain at least one uppercase letter"
	case !hasLower:
		return "password must contain at least one lowercase letter"
	case !hasDigit:
		return "password must contain at least one digit"
	case !hasSpecial:
		return "password must contain at least one special character"
	}
	return ""
}
