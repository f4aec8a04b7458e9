package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes used across all packages
const (
	// Generic errors
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       ErrorCode = "TOKEN_INVALID"
	ErrCodeInsufficientScope  ErrorCode = "INSUFFICIENT_SCOPE"

	// Account errors
	ErrCodeAccountNotFound      ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeEmailAlreadyExists   ErrorCode = "EMAIL_ALREADY_EXISTS"
	ErrCodeEmailAlreadyVerified ErrorCode = "EMAIL_ALREADY_VERIFIED"

	// Verification / reset code errors
	ErrCodeInvalidOrExpiredCode ErrorCode = "INVALID_OR_EXPIRED_CODE"
	ErrCodeInvalidResetCode     ErrorCode = "INVALID_RESET_CODE"

	// 2FA errors
	ErrCodeTwoFARequired ErrorCode = "TWO_FA_REQUIRED"
	ErrCodeTwoFAInvalid  ErrorCode = "TWO_FA_INVALID"
)

// Error represents a structured error with code, message, and optional wrapped cause
type Error struct {
	Code    ErrorCode // Unique error code
	Message string    // Human-readable error message
	Err     error     // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
// Returns ErrCodeInternal if the error is not a structured Error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeEmailAlreadyVerified, ErrCodeInvalidResetCode:
		return http.StatusBadRequest

	case ErrCodeUnauthorized, ErrCodeInvalidCredentials, ErrCodeTokenExpired,
		ErrCodeTokenInvalid, ErrCodeInvalidOrExpiredCode, ErrCodeTwoFARequired,
		ErrCodeTwoFAInvalid:
		return http.StatusUnauthorized

	case ErrCodeForbidden, ErrCodeInsufficientScope:
		return http.StatusForbidden

	case ErrCodeNotFound, ErrCodeAccountNotFound:
		return http.StatusNotFound

	case ErrCodeConflict, ErrCodeEmailAlreadyExists:
		return http.StatusConflict

	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized creates an "unauthorized" error
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Forbidden creates a "forbidden" error
func Forbidden(message string) *Error {
	return New(ErrCodeForbidden, message)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return Newf(ErrCodeInvalidInput, "invalid %s: %s", field, reason)
}

// Internal wraps an unexpected error. The wrapped cause is logged server-side;
// the message is what callers may show to clients.
func Internal(err error, message string) *Error {
	return &Error{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}
