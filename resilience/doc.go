// Package resilience provides the failure-handling primitives composed by
// the request orchestrator.
//
// This package includes:
//   - CircuitBreaker: three-state failure-isolation gate
//   - Retry: bounded exponential backoff with jitter and wait-hint support
//   - Bulkhead: concurrency cap for in-flight calls
//
// The primitives are dependency-free and safe for concurrent use; policy
// (which errors retry, which status codes trip the breaker) is supplied by
// the caller through predicates and hooks:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("backend"))
//	err := cb.Execute(func() error {
//	    return client.Send(ctx, req)
//	})
package resilience
