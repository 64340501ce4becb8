// Package healthz exposes the orchestrator's health report and metrics
// snapshot as HTTP endpoints for operators and load balancers.
package healthz
