// Package metrics maintains rolling request counters and timing statistics
// keyed by client and endpoint.
//
// The aggregator records exactly one sample per orchestrated request and
// exposes immutable snapshots. Health classification (per client and
// overall) is derived from error rates and average latency. Counters can
// optionally be mirrored to OpenTelemetry instruments with WithMeter.
package metrics
