// Package observability wires OpenTelemetry metrics and tracing for
// applications embedding relaykit.
//
// InitMeter and InitTracer install global OTLP-exporting providers; the
// orchestrator creates spans around each mediated call when a tracer is
// configured, and the metrics aggregator can mirror its counters through
// a meter obtained from Meter.
package observability
