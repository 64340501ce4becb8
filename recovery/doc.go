// Package recovery provides pluggable, error-code-keyed remediation for
// terminal request failures.
//
// The manager resolves a strategy by exact error code first, then by error
// category, then falls back to a default. A strategy that reports
// Recovered=true authorizes exactly one replay of the original request;
// the replay never triggers recovery again for the same call.
package recovery
