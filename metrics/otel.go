package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelInstruments mirrors the in-process counters to OpenTelemetry.
type otelInstruments struct {
	requestTotal    metric.Int64Counter
	failureTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// WithMeter mirrors recorded samples to OpenTelemetry instruments created
// from the given meter. Instrument creation failures disable mirroring
// rather than failing the aggregator.
func WithMeter(meter metric.Meter) Option {
	return func(a *Aggregator) {
		requestTotal, err := meter.Int64Counter("relay.requests",
			metric.WithDescription("Completed orchestrated requests"))
		if err != nil {
			return
		}
		failureTotal, err := meter.Int64Counter("relay.failures",
			metric.WithDescription("Terminally failed orchestrated requests"))
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram("relay.request.duration",
			metric.WithDescription("Orchestrated request duration"),
			metric.WithUnit("ms"))
		if err != nil {
			return
		}

		a.otel = &otelInstruments{
			requestTotal:    requestTotal,
			failureTotal:    failureTotal,
			requestDuration: requestDuration,
		}
	}
}

func (o *otelInstruments) record(ctx context.Context, s Sample) {
	attrs := metric.WithAttributes(
		attribute.String("client", s.Client),
		attribute.String("endpoint", s.Endpoint),
		attribute.Bool("success", s.Success),
	)

	o.requestTotal.Add(ctx, 1, attrs)
	if !s.Success {
		o.failureTotal.Add(ctx, 1, attrs)
	}
	o.requestDuration.Record(ctx, float64(s.Duration.Milliseconds()), attrs)
}
