package orchestrator

import (
	"github.com/kbukum/relaykit/metrics"
)

// ClientHealth describes one client in a health report.
type ClientHealth struct {
	Status       metrics.HealthStatus `json:"status"`
	BreakerState string               `json:"breaker_state"`
	Requests     int64                `json:"requests"`
	Failures     int64                `json:"failures"`
}

// Report is the orchestrator's aggregated health view.
type Report struct {
	Overall   metrics.HealthStatus    `json:"overall"`
	PerClient map[string]ClientHealth `json:"per_client"`
}

// HealthStatus classifies every registered client from its rolling
// metrics. Clients with no recorded traffic report healthy.
func (o *Orchestrator) HealthStatus() Report {
	perClient := make(map[string]ClientHealth, len(o.clients))
	statuses := make(map[string]metrics.HealthStatus, len(o.clients))

	stats := o.Metrics().PerClient()
	for name := range o.clients {
		cs := stats[name]
		status := metrics.ClassifyClient(cs)
		statuses[name] = status
		perClient[name] = ClientHealth{
			Status:       status,
			BreakerState: o.BreakerState(name).String(),
			Requests:     cs.Requests,
			Failures:     cs.Failures,
		}
	}

	return Report{
		Overall:   metrics.ClassifyOverall(statuses),
		PerClient: perClient,
	}
}
