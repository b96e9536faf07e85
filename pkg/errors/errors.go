package errors

import (
	stderrors "errors"
	"net/http"
)

// Reason is a machine-readable code so clients can render the right message
// ("not registered" vs "disqualified" vs "contest closed").
type Reason string

const (
	ReasonValidation        Reason = "VALIDATION"
	ReasonUnauthorized      Reason = "UNAUTHORIZED"
	ReasonForbidden         Reason = "FORBIDDEN"
	ReasonNotFound          Reason = "NOT_FOUND"
	ReasonNotRegistered     Reason = "NOT_REGISTERED"
	ReasonNotStarted        Reason = "NOT_STARTED"
	ReasonContestNotStarted Reason = "CONTEST_NOT_STARTED"
	ReasonContestClosed     Reason = "CONTEST_CLOSED"
	ReasonDisqualified      Reason = "DISQUALIFIED"
	ReasonAlreadySubmitted  Reason = "ALREADY_SUBMITTED"
	ReasonRateLimit         Reason = "RATE_LIMITED"
	ReasonInfrastructure    Reason = "INFRASTRUCTURE"
	ReasonInternal          Reason = "INTERNAL"
)

// AppError is a custom error type that includes an HTTP status code
type AppError struct {
	Code      int    `json:"code"`
	Reason    Reason `json:"reason"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	cause     error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches on Reason so callers can compare against the sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// NewAppError creates a new AppError
func NewAppError(code int, reason Reason, message string) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// Common errors
var (
	ErrInvalidRequest    = NewAppError(http.StatusBadRequest, ReasonValidation, "Invalid request parameters")
	ErrUnauthorized      = NewAppError(http.StatusUnauthorized, ReasonUnauthorized, "Unauthorized access")
	ErrForbidden         = NewAppError(http.StatusForbidden, ReasonForbidden, "Access denied")
	ErrNotFound          = NewAppError(http.StatusNotFound, ReasonNotFound, "Resource not found")
	ErrInternalServer    = NewAppError(http.StatusInternalServerError, ReasonInternal, "Internal server error")
	ErrRateLimit         = NewAppError(http.StatusTooManyRequests, ReasonRateLimit, "Rate limit exceeded")
	ErrNotRegistered     = NewAppError(http.StatusForbidden, ReasonNotRegistered, "You are not registered for this contest")
	ErrNotStarted        = NewAppError(http.StatusForbidden, ReasonNotStarted, "You have not started this contest")
	ErrContestNotStarted = NewAppError(http.StatusForbidden, ReasonContestNotStarted, "Contest has not started yet")
	ErrContestClosed     = NewAppError(http.StatusForbidden, ReasonContestClosed, "Contest has ended")
	ErrDisqualified      = NewAppError(http.StatusForbidden, ReasonDisqualified, "You have been disqualified from this contest")
	ErrAlreadySubmitted  = NewAppError(http.StatusForbidden, ReasonAlreadySubmitted, "You have already submitted this contest")
)

// Helper functions to create specific errors
func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, ReasonValidation, msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, ReasonNotFound, msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, ReasonUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return NewAppError(http.StatusForbidden, ReasonForbidden, msg)
}

func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, ReasonInternal, msg)
}

// Unavailable wraps an infrastructure failure (database, cache) as a retryable 503.
// The cause is kept for logging but never rendered to the client.
func Unavailable(msg string, cause error) *AppError {
	return &AppError{
		Code:      http.StatusServiceUnavailable,
		Reason:    ReasonInfrastructure,
		Message:   msg,
		Retryable: true,
		cause:     cause,
	}
}

// As extracts an *AppError from err, if there is one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
