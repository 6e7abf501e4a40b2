package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already registered")
	// ErrInvalidCredentials is returned when the identifier or password is
	// wrong. The message never reveals which one.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned when a deactivated account attempts to log in.
	ErrAccountInactive = errors.New("account is deactivated")
	// ErrInvalidToken is returned for any token verification failure.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTaskNotFound is returned when a task does not exist or is not owned
	// by the requester. The two cases are deliberately indistinguishable.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskAlreadyCompleted is returned when completing a completed task.
	ErrTaskAlreadyCompleted = errors.New("task is already completed")
	// ErrWrongPassword is returned when the current password check fails on
	// a password change.
	ErrWrongPassword = errors.New("current password is incorrect")
)

// CredentialsError is an invalid-credentials failure that reports how many
// attempts remain before the account locks.
type CredentialsError struct {
	Remaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.Remaining)
}

// LockedError is returned when an account is locked out.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s due to too many failed login attempts", e.Until.UTC().Format(time.RFC3339))
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var credErr *CredentialsError
	var lockErr *LockedError

	switch {
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "USERNAME_TAKEN")
	case errors.As(err, &credErr):
		return NewHTTPError(http.StatusUnauthorized, credErr.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.As(err, &lockErr):
		return NewHTTPError(http.StatusForbidden, lockErr.Error(), "ACCOUNT_LOCKED")
	case errors.Is(err, ErrAccountInactive):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ACCOUNT_INACTIVE")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrTaskNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "TASK_NOT_FOUND")
	case errors.Is(err, ErrTaskAlreadyCompleted):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "TASK_ALREADY_COMPLETED")
	case errors.Is(err, ErrWrongPassword):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "WRONG_PASSWORD")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
