package metrics

import (
	"context"
	"sync"
	"time"
)

// Sample describes one completed request. Exactly one sample is recorded
// per orchestrated call, regardless of how many retry attempts it took.
type Sample struct {
	RequestID string
	Client    string
	Method    string
	Endpoint  string
	Duration  time.Duration
	Success   bool
	Code      string
}

// EndpointMetrics holds rolling counters for one client endpoint.
type EndpointMetrics struct {
	Requests   int64         `json:"requests"`
	Successes  int64         `json:"successes"`
	Failures   int64         `json:"failures"`
	AvgLatency time.Duration `json:"avg_latency"`
	LastAccess time.Time     `json:"last_access"`
}

// Totals holds the global rolling counters.
type Totals struct {
	Requests  int64 `json:"requests"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// Snapshot is an immutable copy of the aggregator state.
type Snapshot struct {
	Totals      Totals                     `json:"totals"`
	Endpoints   map[string]EndpointMetrics `json:"endpoints"`
	CollectedAt time.Time                  `json:"collected_at"`
}

// Aggregator maintains rolling request counters keyed by client:endpoint.
// Counters grow until Reset is called; there is no windowing.
type Aggregator struct {
	mu        sync.Mutex
	totals    Totals
	endpoints map[string]*EndpointMetrics

	otel *otelInstruments
}

// Option configures the aggregator.
type Option func(*Aggregator)

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		endpoints: make(map[string]*EndpointMetrics),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record folds one completed request into the counters.
func (a *Aggregator) Record(ctx context.Context, s Sample) {
	key := s.Client + ":" + s.Endpoint

	a.mu.Lock()
	a.totals.Requests++
	if s.Success {
		a.totals.Successes++
	} else {
		a.totals.Failures++
	}

	em, ok := a.endpoints[key]
	if !ok {
		em = &EndpointMetrics{}
		a.endpoints[key] = em
	}
	em.Requests++
	if s.Success {
		em.Successes++
	} else {
		em.Failures++
	}
	// Incremental running average: avg = (avg*(n-1) + sample) / n
	n := em.Requests
	em.AvgLatency = time.Duration((int64(em.AvgLatency)*(n-1) + int64(s.Duration)) / n)
	em.LastAccess = time.Now()
	a.mu.Unlock()

	if a.otel != nil {
		a.otel.record(ctx, s)
	}
}

// Snapshot returns a deep copy of the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	endpoints := make(map[string]EndpointMetrics, len(a.endpoints))
	for k, v := range a.endpoints {
		endpoints[k] = *v
	}
	return Snapshot{
		Totals:      a.totals,
		Endpoints:   endpoints,
		CollectedAt: time.Now(),
	}
}

// Reset clears every counter. Intended for explicit operator action only.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totals = Totals{}
	a.endpoints = make(map[string]*EndpointMetrics)
}

// ClientStats aggregates a client's endpoints into one view.
type ClientStats struct {
	Requests   int64         `json:"requests"`
	Failures   int64         `json:"failures"`
	AvgLatency time.Duration `json:"avg_latency"`
}

// PerClient folds endpoint counters into per-client stats. Average latency
// is weighted by request count.
func (s Snapshot) PerClient() map[string]ClientStats {
	out := make(map[string]ClientStats)
	weighted := make(map[string]int64)

	for key, em := range s.Endpoints {
		client := key
		for i := 0; i < len(key); i++ {
			if key[i] == ':' {
				client = key[:i]
				break
			}
		}
		cs := out[client]
		cs.Requests += em.Requests
		cs.Failures += em.Failures
		weighted[client] += int64(em.AvgLatency) * em.Requests
		out[client] = cs
	}
	for client, cs := range out {
		if cs.Requests > 0 {
			cs.AvgLatency = time.Duration(weighted[client] / cs.Requests)
			out[client] = cs
		}
	}
	return out
}
