package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes surfaced by the token subsystem
const (
	// Generic errors
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Single-use token errors
	ErrCodeTokenInvalid      ErrorCode = "TOKEN_INVALID"
	ErrCodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	ErrCodeDuplicateIssuance ErrorCode = "DUPLICATE_ISSUANCE"

	// Session errors
	ErrCodeSessionInvalid ErrorCode = "SESSION_INVALID"
	ErrCodeSessionReplay  ErrorCode = "SESSION_REPLAY"

	// Delivery errors
	ErrCodeSendFailed ErrorCode = "SEND_FAILED"

	// Account errors
	ErrCodeEmailAlreadyVerified ErrorCode = "EMAIL_ALREADY_VERIFIED"
	ErrCodeInvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
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

// WithDetail returns a copy of the error with a detail added.
// Sentinels are shared, so they are never mutated in place.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details, Err: e}
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// Sentinel errors. Compare with errors.Is; wrap with fmt.Errorf("...: %w", ErrX).
var (
	// ErrInvalidToken covers consumed, forged and never-issued tokens.
	ErrInvalidToken = New(ErrCodeTokenInvalid, "token is invalid")

	// ErrTokenExpired is returned on the first presentation of a token past its expiry.
	ErrTokenExpired = New(ErrCodeTokenExpired, "token has expired")

	// ErrSessionInvalid covers unknown, expired, revoked and malformed refresh credentials.
	ErrSessionInvalid = New(ErrCodeSessionInvalid, "session is invalid")

	// ErrSessionReplay is a retired refresh credential presented again.
	// errors.Is(ErrSessionReplay, ErrSessionInvalid) is true.
	ErrSessionReplay = Wrap(ErrSessionInvalid, ErrCodeSessionReplay, "refresh credential reused")

	// ErrSendFailed is returned when a required outbound message could not be delivered.
	ErrSendFailed = New(ErrCodeSendFailed, "failed to send message")

	// ErrDuplicateIssuance is returned when issuance collides twice on the unique hash.
	ErrDuplicateIssuance = New(ErrCodeDuplicateIssuance, "token issuance collided")

	// ErrRateLimited is returned when issuance is throttled.
	ErrRateLimited = New(ErrCodeRateLimitExceeded, "rate limit exceeded")

	// ErrAlreadyVerified is returned when resending verification to a verified address.
	ErrAlreadyVerified = New(ErrCodeEmailAlreadyVerified, "email already verified")

	// ErrInvalidCredentials is returned by login for unknown email or wrong password.
	ErrInvalidCredentials = New(ErrCodeInvalidCredentials, "invalid credentials")
)

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

// IsCode checks if an error has a specific error code anywhere in its chain
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// GetCode extracts the outermost error code from an error.
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
	// 400 Bad Request
	case ErrCodeInvalidInput, ErrCodeTokenInvalid, ErrCodeTokenExpired:
		return http.StatusBadRequest

	// 401 Unauthorized
	case ErrCodeSessionInvalid, ErrCodeSessionReplay, ErrCodeInvalidCredentials:
		return http.StatusUnauthorized

	// 404 Not Found
	case ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case ErrCodeEmailAlreadyVerified, ErrCodeDuplicateIssuance:
		return http.StatusConflict

	// 429 Too Many Requests
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 503 Service Unavailable
	case ErrCodeSendFailed:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message shown to end users for a code.
// Token failures share one message so callers cannot tell which case applied.
func PublicMessage(code ErrorCode) string {
	switch code {
	case ErrCodeTokenInvalid, ErrCodeTokenExpired:
		return "Invalid or expired link"
	case ErrCodeSessionInvalid, ErrCodeSessionReplay:
		return "Session is invalid or has expired"
	case ErrCodeInvalidCredentials:
		return "Invalid email or password"
	case ErrCodeRateLimitExceeded:
		return "Too many requests, please try again later"
	case ErrCodeSendFailed:
		return "We could not send the email, please try again"
	case ErrCodeEmailAlreadyVerified:
		return "Email is already verified"
	case ErrCodeInvalidInput:
		return "Invalid request"
	default:
		return "An internal error occurred"
	}
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
