// Package orchestrator composes the toolkit into a single entry point
// for outbound calls. Every request flows through the rate limiter, a
// per-client circuit breaker, and the retry loop; outcomes feed the
// metrics aggregator and failures run through the recovery manager,
// which may authorize a single replay.
package orchestrator
