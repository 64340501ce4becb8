package healthz

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/relaykit/metrics"
	"github.com/kbukum/relaykit/orchestrator"
)

// Routes registers the operator endpoints on a gin router:
//
//	GET /healthz  overall and per-client health with breaker states
//	GET /metrics  snapshot of the rolling request counters
func Routes(r gin.IRouter, o *orchestrator.Orchestrator) {
	r.GET("/healthz", healthHandler(o))
	r.GET("/metrics", metricsHandler(o))
}

func healthHandler(o *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := o.HealthStatus()

		status := http.StatusOK
		if report.Overall == metrics.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}

func metricsHandler(o *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Metrics())
	}
}
