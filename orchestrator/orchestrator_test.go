package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/relaykit/errors"
	"github.com/kbukum/relaykit/httpclient"
	"github.com/kbukum/relaykit/ratelimit"
	"github.com/kbukum/relaykit/resilience"
)

func newTestConfig(serverURL string) Config {
	return Config{
		Clients: map[string]httpclient.Config{
			"backend": {BaseURL: serverURL},
		},
		Retry: RetrySettings{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			BackoffFactor:  2.0,
			JitterMax:      time.Millisecond,
		},
		Breaker: BreakerSettings{
			FailureThreshold: 10,
			SuccessThreshold: 3,
			ResetTimeout:     50 * time.Millisecond,
		},
	}
}

func TestExecuteRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	o, err := New(newTestConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/items", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("unexpected body %q", resp.Body)
	}
}

func TestExecuteRequest_UnknownClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL))
	_, err := o.ExecuteRequest(context.Background(), "nope", http.MethodGet, "/", nil, nil)
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %s", errors.CodeOf(err))
	}
}

func TestExecuteRequest_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL))
	resp, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/flaky", nil, nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", hits.Load())
	}
}

func TestExecuteRequest_NonRetryableFailsFast(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL))
	_, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/missing", nil, nil)
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %s", errors.CodeOf(err))
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 attempt for non-retryable failure, got %d", hits.Load())
	}
}

func TestExecuteRequest_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL))
	_, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/down", nil, nil)
	if !errors.IsCode(err, errors.ErrCodeRetriesExhausted) {
		t.Errorf("expected RETRIES_EXHAUSTED, got %s", errors.CodeOf(err))
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}

	appErr := errors.AsAppError(err)
	if appErr == nil || errors.CodeOf(appErr.Cause) != errors.ErrCodeServer {
		t.Errorf("expected SERVER_ERROR cause, got %v", err)
	}
}

func TestExecuteRequest_CircuitOpensAndBlocksNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Breaker.FailureThreshold = 3
	cfg.Breaker.ResetTimeout = time.Second

	o, _ := New(cfg)
	for i := 0; i < 3; i++ {
		_, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/down", nil, nil)
		if !errors.IsCode(err, errors.ErrCodeServer) {
			t.Fatalf("call %d: expected SERVER_ERROR, got %s", i+1, errors.CodeOf(err))
		}
	}

	if o.BreakerState("backend") != resilience.StateOpen {
		t.Fatalf("expected open breaker, got %s", o.BreakerState("backend"))
	}

	before := hits.Load()
	_, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/down", nil, nil)
	if !errors.IsCode(err, errors.ErrCodeCircuitOpen) {
		t.Errorf("expected CIRCUIT_OPEN, got %s", errors.CodeOf(err))
	}
	if hits.Load() != before {
		t.Error("open circuit must not reach the network")
	}
}

func TestExecuteRequest_ClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Breaker.FailureThreshold = 2

	o, _ := New(cfg)
	for i := 0; i < 5; i++ {
		_, _ = o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/missing", nil, nil)
	}
	if o.BreakerState("backend") != resilience.StateClosed {
		t.Errorf("404s must not open the breaker, state %s", o.BreakerState("backend"))
	}
}

func TestExecuteRequest_RateLimitDeniedLocally(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.Rules = []ratelimit.Rule{
		{Name: "limited", Capacity: 2, Window: time.Minute, Endpoints: []string{"/limited"}},
	}

	o, _ := New(cfg)
	for i := 0; i < 2; i++ {
		if _, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/limited", nil, nil); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}

	_, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/limited", nil, nil)
	if !errors.IsCode(err, errors.ErrCodeRateLimitExceeded) {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %s", errors.CodeOf(err))
	}
	if hint := errors.RetryAfterHint(err); hint <= 0 {
		t.Errorf("expected a positive wait hint, got %v", hint)
	}
	if hits.Load() != 2 {
		t.Errorf("denied call must not reach the network, got %d hits", hits.Load())
	}
}

func TestExecuteRequest_MetricsRecordedOncePerCall(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL))
	if _, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/flaky", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := o.Metrics()
	if snap.Totals.Requests != 1 {
		t.Errorf("expected 1 recorded request regardless of retries, got %d", snap.Totals.Requests)
	}
	if snap.Totals.Successes != 1 {
		t.Errorf("expected 1 success, got %d", snap.Totals.Successes)
	}
}

func TestExecuteRequest_RecoveryReplaysOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var onErrorCalls atomic.Int32
	o, _ := New(newTestConfig(server.URL),
		WithTokenSource(NewStaticTokenSource("fresh")),
		WithCallbacks(Callbacks{OnError: func(string, error) { onErrorCalls.Add(1) }}),
	)

	resp, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/secure", nil, nil)
	if err != nil {
		t.Fatalf("expected replay to succeed, got %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after replay, got %d", resp.StatusCode)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 network calls (original + replay), got %d", hits.Load())
	}
	if onErrorCalls.Load() != 0 {
		t.Error("OnError must not fire when recovery succeeds")
	}
}

func TestExecuteRequest_ReplayHappensAtMostOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var onErrorCalls atomic.Int32
	o, _ := New(newTestConfig(server.URL),
		WithTokenSource(NewStaticTokenSource("still-bad")),
		WithCallbacks(Callbacks{OnError: func(string, error) { onErrorCalls.Add(1) }}),
	)

	_, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/secure", nil, nil)
	if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %s", errors.CodeOf(err))
	}
	if hits.Load() != 2 {
		t.Errorf("expected exactly 2 network calls, got %d", hits.Load())
	}
	if onErrorCalls.Load() != 1 {
		t.Errorf("expected OnError exactly once, got %d", onErrorCalls.Load())
	}
}

func TestExecuteRequest_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := o.ExecuteRequest(ctx, "backend", http.MethodGet, "/slow", nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Error("cancellation should abort promptly, including retry sleeps")
	}
}

func TestUpdateAuthToken_PropagatesToClients(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL), WithTokenSource(NewStaticTokenSource("tok-1")))

	if err := o.UpdateAuthToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "Bearer tok-1" {
		t.Errorf("expected propagated token, got %q", seen)
	}
}

func TestUpdateAuthToken_EmptyTokenFiresOnUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	var fired atomic.Int32
	o, _ := New(newTestConfig(server.URL),
		WithTokenSource(NewStaticTokenSource("")),
		WithCallbacks(Callbacks{OnUnauthorized: func() { fired.Add(1) }}),
	)

	err := o.UpdateAuthToken(context.Background())
	if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
	if fired.Load() != 1 {
		t.Errorf("expected OnUnauthorized once, got %d", fired.Load())
	}
}

func TestHealthStatus(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.Retry.MaxAttempts = 1
	o, _ := New(cfg)

	report := o.HealthStatus()
	if report.Overall != "healthy" {
		t.Errorf("traffic-less orchestrator should be healthy, got %s", report.Overall)
	}
	if ch := report.PerClient["backend"]; ch.Status != "healthy" || ch.BreakerState != "closed" {
		t.Errorf("unexpected client health %+v", ch)
	}

	failing.Store(true)
	for i := 0; i < 4; i++ {
		_, _ = o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/x", nil, nil)
	}

	report = o.HealthStatus()
	if report.Overall != "unhealthy" {
		t.Errorf("expected unhealthy after persistent failures, got %s", report.Overall)
	}
}

func TestResetMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	o, _ := New(newTestConfig(server.URL))
	_, _ = o.ExecuteRequest(context.Background(), "backend", http.MethodGet, "/", nil, nil)

	o.ResetMetrics()
	if snap := o.Metrics(); snap.Totals.Requests != 0 {
		t.Errorf("expected empty counters after reset, got %d", snap.Totals.Requests)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure with no clients")
	}

	cfg = Config{Clients: map[string]httpclient.Config{"a": {}}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure with missing base_url")
	}

	cfg = Config{
		BaseURL: "http://shared.example",
		Clients: map[string]httpclient.Config{"a": {}},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("clients should inherit the shared base URL: %v", err)
	}
	if cfg.Clients["a"].BaseURL != "http://shared.example" {
		t.Errorf("expected inherited base URL, got %q", cfg.Clients["a"].BaseURL)
	}
}
