package orchestrator

import (
	"context"
	"fmt"

	"github.com/kbukum/relaykit/component"
	"github.com/kbukum/relaykit/metrics"
)

// Component wraps the orchestrator with lifecycle management so it can
// live in a component.Registry next to the application's other pieces.
// The orchestrator is created lazily in Start.
type Component struct {
	config Config
	opts   []Option
	orch   *Orchestrator
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a lifecycle-managed orchestrator component.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Base.Name != "" {
		return c.config.Base.Name
	}
	return "relay"
}

// Start builds the orchestrator.
func (c *Component) Start(_ context.Context) error {
	o, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.orch = o
	return nil
}

// Stop flushes the orchestrator's telemetry providers and releases it.
// In-flight calls run to completion on their own contexts.
func (c *Component) Stop(ctx context.Context) error {
	if c.orch == nil {
		return nil
	}
	err := c.orch.Shutdown(ctx)
	c.orch = nil
	return err
}

// Health maps the orchestrator's health report onto the component
// contract.
func (c *Component) Health(_ context.Context) component.Health {
	if c.orch == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}

	report := c.orch.HealthStatus()
	status := component.StatusHealthy
	switch report.Overall {
	case metrics.StatusDegraded:
		status = component.StatusDegraded
	case metrics.StatusUnhealthy:
		status = component.StatusUnhealthy
	}
	return component.Health{Name: c.Name(), Status: status}
}

// Describe returns summary information for a startup display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "relay",
		Details: fmt.Sprintf("%d clients, %d rules", len(c.config.Clients), len(c.config.Rules)),
	}
}

// Orchestrator returns the underlying orchestrator. Valid after Start.
func (c *Component) Orchestrator() *Orchestrator {
	return c.orch
}
