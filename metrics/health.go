package metrics

import "time"

// HealthStatus classifies a client or the whole system.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Classification thresholds.
const (
	unhealthyErrorRate = 0.5
	degradedErrorRate  = 0.2
	degradedLatency    = 5 * time.Second

	unhealthyClientShare = 0.5
	degradedClientShare  = 0.8
)

// ClassifyClient derives a health status from a client's rolling stats.
// Clients with no recorded traffic are healthy.
func ClassifyClient(stats ClientStats) HealthStatus {
	if stats.Requests == 0 {
		return StatusHealthy
	}
	errorRate := float64(stats.Failures) / float64(stats.Requests)

	switch {
	case errorRate > unhealthyErrorRate:
		return StatusUnhealthy
	case errorRate > degradedErrorRate || stats.AvgLatency > degradedLatency:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// ClassifyOverall derives system health from the share of healthy clients.
func ClassifyOverall(perClient map[string]HealthStatus) HealthStatus {
	if len(perClient) == 0 {
		return StatusHealthy
	}

	healthy := 0
	for _, status := range perClient {
		if status == StatusHealthy {
			healthy++
		}
	}
	share := float64(healthy) / float64(len(perClient))

	switch {
	case share < unhealthyClientShare:
		return StatusUnhealthy
	case share < degradedClientShare:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
