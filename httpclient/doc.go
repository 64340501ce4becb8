// Package httpclient provides a configurable backend service client with
// TLS support, default headers, rotatable bearer credentials, and error
// classification into the shared taxonomy. The orchestrator package wraps
// it with rate limiting, circuit breaking, and retries.
package httpclient
