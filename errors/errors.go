package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified error type for the call-mediation layer.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// RetryAfter is a server-supplied wait hint, zero if absent.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	// HTTPStatus is the HTTP status code that produced this error (0 for local errors).
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Category returns the category of the error's code.
func (e *AppError) Category() Category { return CategoryOf(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithRetryAfter sets the wait hint and returns the receiver.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	e.RetryAfter = d
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// RateLimited creates an error for a call denied by the local rate limiter.
// The wait hint tells the caller when a token will be available.
func RateLimited(rule string, wait time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeRateLimitExceeded, Message: "Too many requests. Please wait a moment and try again.",
		Retryable: true, RetryAfter: wait,
		Details: map[string]any{"rule": rule},
	}
}

// CircuitOpen creates an error for a call rejected by the circuit breaker.
func CircuitOpen(target string) *AppError {
	return &AppError{
		Code: ErrCodeCircuitOpen, Message: fmt.Sprintf("The %s service is temporarily unavailable due to repeated failures.", target),
		Retryable: false,
		Details:   map[string]any{"target": target},
	}
}

// RetriesExhausted creates an error for a call that failed all retry attempts.
func RetriesExhausted(attempts int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeRetriesExhausted, Message: fmt.Sprintf("Request failed after %d attempts.", attempts),
		Retryable: false, Cause: cause,
		Details: map[string]any{"attempts": attempts},
	}
}

// Network creates an error for a connection-level failure.
func Network(cause error) *AppError {
	return &AppError{
		Code: ErrCodeNetwork, Message: "Unable to reach the service. Please check your connection.",
		Retryable: true, Cause: cause,
	}
}

// Timeout creates an error for a request that timed out.
func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		Retryable: true, Cause: cause,
		Details: map[string]any{"operation": operation},
	}
}

// TokenExpired creates an error for an expired bearer credential.
func TokenExpired() *AppError {
	return &AppError{
		Code: ErrCodeTokenExpired, Message: "Your session has expired. Please sign in again.",
		Retryable: false, HTTPStatus: http.StatusUnauthorized,
	}
}

// Unauthorized creates an error for a 401 response.
func Unauthorized() *AppError {
	return &AppError{
		Code: ErrCodeUnauthorized, Message: "Authentication is required.",
		Retryable: false, HTTPStatus: http.StatusUnauthorized,
	}
}

// --- Classification ---

// FromStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes. retryAfter carries the parsed
// Retry-After hint when the server supplied one.
func FromStatusCode(status int, body []byte, retryAfter time.Duration) *AppError {
	var e *AppError
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		e = Unauthorized()
	case status == http.StatusForbidden:
		e = &AppError{Code: ErrCodeForbidden, Message: "You do not have permission to perform this action."}
	case status == http.StatusNotFound:
		e = &AppError{Code: ErrCodeNotFound, Message: "The requested resource was not found."}
	case status == http.StatusTooManyRequests:
		e = &AppError{Code: ErrCodeRateLimitExceeded, Message: "The service is receiving too many requests.", Retryable: true}
	case status >= 400 && status < 500:
		e = &AppError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("The service rejected the request (HTTP %d).", status)}
	case status == http.StatusServiceUnavailable:
		e = &AppError{Code: ErrCodeServiceUnavailable, Message: "The service is temporarily unavailable.", Retryable: true}
	case status >= 500:
		e = &AppError{Code: ErrCodeServer, Message: fmt.Sprintf("The service reported an error (HTTP %d).", status), Retryable: retryableServerStatus(status)}
	default:
		e = &AppError{Code: ErrCodeUnknown, Message: fmt.Sprintf("Unexpected response (HTTP %d).", status)}
	}
	e.HTTPStatus = status
	e.RetryAfter = retryAfter
	if len(body) > 0 {
		e = e.WithDetail("body", string(body))
	}
	return e
}

// retryableServerStatus reports whether a 5xx status is worth retrying.
// Only transient server failures qualify; 501 and the like are permanent.
func retryableServerStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// --- Inspection helpers ---

// AsAppError extracts an *AppError from an error chain, or nil.
func AsAppError(err error) *AppError {
	var e *AppError
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}

// CodeOf returns the error code of err, or ErrCodeUnknown.
func CodeOf(err error) ErrorCode {
	if e := AsAppError(err); e != nil {
		return e.Code
	}
	return ErrCodeUnknown
}

// IsCode checks whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable checks whether err is marked retryable.
func IsRetryable(err error) bool {
	if e := AsAppError(err); e != nil {
		return e.Retryable
	}
	return false
}

// RetryAfterHint returns the server-supplied wait hint, zero if absent.
func RetryAfterHint(err error) time.Duration {
	if e := AsAppError(err); e != nil {
		return e.RetryAfter
	}
	return 0
}
