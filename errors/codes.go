package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Local errors raised before any network attempt.
const (
	// ErrCodeRateLimitExceeded indicates the client-side rate limiter denied the call.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeCircuitOpen indicates the circuit breaker rejected the call.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeRetriesExhausted indicates all retry attempts failed.
	ErrCodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"
)

// Transport errors.
const (
	// ErrCodeNetwork indicates a connection-level failure (refused, DNS, reset).
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeTimeout indicates the request or connection timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Authentication/Authorization errors.
const (
	// ErrCodeTokenExpired indicates the bearer credential has expired.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	// ErrCodeUnauthorized indicates the request is unauthorized (401).
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates the request is forbidden (403).
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// HTTP-status-mapped errors.
const (
	// ErrCodeNotFound indicates the requested resource was not found (404).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the server rejected the request (other 4xx).
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer ErrorCode = "SERVER_ERROR"
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable (503).
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrCodeUnknown is the fallback for unclassified failures.
const ErrCodeUnknown ErrorCode = "UNKNOWN"

// Category groups error codes for coarse-grained handling, such as the
// recovery manager's category fallback.
type Category string

const (
	// CategoryLocal covers errors raised before any network attempt.
	CategoryLocal Category = "local"
	// CategoryTransport covers connection and timeout failures.
	CategoryTransport Category = "transport"
	// CategoryAuth covers authentication and authorization failures.
	CategoryAuth Category = "auth"
	// CategoryClient covers 4xx request errors.
	CategoryClient Category = "client"
	// CategoryServer covers 5xx server errors.
	CategoryServer Category = "server"
	// CategoryUnknown covers everything else.
	CategoryUnknown Category = "unknown"
)

var codeCategories = map[ErrorCode]Category{
	ErrCodeRateLimitExceeded:  CategoryLocal,
	ErrCodeCircuitOpen:        CategoryLocal,
	ErrCodeRetriesExhausted:   CategoryLocal,
	ErrCodeNetwork:            CategoryTransport,
	ErrCodeTimeout:            CategoryTransport,
	ErrCodeTokenExpired:       CategoryAuth,
	ErrCodeUnauthorized:       CategoryAuth,
	ErrCodeForbidden:          CategoryAuth,
	ErrCodeNotFound:           CategoryClient,
	ErrCodeInvalidInput:       CategoryClient,
	ErrCodeServer:             CategoryServer,
	ErrCodeServiceUnavailable: CategoryServer,
}

// CategoryOf returns the category for an error code.
func CategoryOf(code ErrorCode) Category {
	if cat, ok := codeCategories[code]; ok {
		return cat
	}
	return CategoryUnknown
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodeRateLimitExceeded:  true,
	ErrCodeNetwork:            true,
	ErrCodeTimeout:            true,
	ErrCodeServer:             true,
	ErrCodeServiceUnavailable: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
