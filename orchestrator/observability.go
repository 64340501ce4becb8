package orchestrator

import (
	"context"
	"errors"

	"github.com/kbukum/relaykit/metrics"
	"github.com/kbukum/relaykit/observability"
)

const instrumentationName = "github.com/kbukum/relaykit/orchestrator"

// initObservability stands up the OTel export pipeline from config: the
// global meter and tracer providers are initialized with the service
// identity from Base, and the orchestrator's tracer is defaulted from
// the global provider unless one was injected. Provider shutdown funcs
// are collected for Shutdown.
func (o *Orchestrator) initObservability(ctx context.Context) error {
	obs := o.cfg.Observability

	mp, err := observability.InitMeter(ctx, observability.MeterConfig{
		ServiceName:    o.cfg.Base.Name,
		ServiceVersion: o.cfg.Base.Version,
		Environment:    o.cfg.Base.Environment,
		Endpoint:       obs.Endpoint,
		Insecure:       obs.Insecure,
		Interval:       obs.MetricsInterval,
	})
	if err != nil {
		return err
	}
	o.shutdowns = append(o.shutdowns, mp.Shutdown)

	tp, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    o.cfg.Base.Name,
		ServiceVersion: o.cfg.Base.Version,
		Environment:    o.cfg.Base.Environment,
		Endpoint:       obs.Endpoint,
		Insecure:       obs.Insecure,
		SampleRate:     obs.SampleRate,
	})
	if err != nil {
		return err
	}
	o.shutdowns = append(o.shutdowns, tp.Shutdown)

	if o.tracer == nil {
		o.tracer = observability.Tracer(instrumentationName)
	}
	return nil
}

// meterOptions returns the aggregator options that mirror counters to
// OTel, empty when observability is disabled.
func (o *Orchestrator) meterOptions() []metrics.Option {
	if !o.cfg.Observability.Enabled {
		return nil
	}
	return []metrics.Option{metrics.WithMeter(observability.Meter(instrumentationName))}
}

// Shutdown flushes and stops the telemetry providers started by this
// orchestrator. It is a no-op when observability is disabled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range o.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.shutdowns = nil
	return errors.Join(errs...)
}
