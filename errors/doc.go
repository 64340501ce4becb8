// Package errors defines the error taxonomy shared by all relaykit packages.
//
// Every error surfaced to a caller is an *AppError carrying:
//   - Code: a machine-readable ErrorCode (RATE_LIMIT_EXCEEDED, CIRCUIT_OPEN, ...)
//   - Retryable: whether the retry handler may repeat the operation
//   - RetryAfter: an optional server-supplied wait hint
//
// Local denials (rate limit, circuit open) and transport failures use
// dedicated constructors; HTTP responses are classified with FromStatusCode.
// The recovery manager keys its strategies on ErrorCode with a Category
// fallback (CategoryOf).
package errors
