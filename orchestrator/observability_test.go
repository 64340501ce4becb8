package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestConfigApplyDefaults_Observability(t *testing.T) {
	cfg := Config{Observability: ObservabilitySettings{Enabled: true}}
	cfg.ApplyDefaults()

	if cfg.Observability.Endpoint != "localhost:4318" {
		t.Errorf("expected default endpoint, got %q", cfg.Observability.Endpoint)
	}
	if !cfg.Observability.Insecure {
		t.Error("expected insecure export with the default endpoint")
	}
	if cfg.Observability.SampleRate != 1.0 {
		t.Errorf("expected full sampling by default, got %v", cfg.Observability.SampleRate)
	}
	if cfg.Observability.MetricsInterval != 15*time.Second {
		t.Errorf("expected 15s export interval, got %v", cfg.Observability.MetricsInterval)
	}

	cfg = Config{}
	cfg.ApplyDefaults()
	if cfg.Observability.Endpoint != "" {
		t.Error("disabled observability should not be defaulted")
	}
}

func TestNew_ObservabilityEnabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.Base.Name = "relay-test"
	cfg.Observability.Enabled = true

	o, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := o.ExecuteRequest(context.Background(), "backend", "GET", "/ping", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	snap := o.Metrics()
	if snap.Totals.Requests != 1 {
		t.Errorf("expected 1 recorded request, got %d", snap.Totals.Requests)
	}

	// No collector is running here; Shutdown may surface the flush
	// failure but must return promptly.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = o.Shutdown(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown did not return")
	}
}

func TestShutdown_NoopWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	o, err := New(newTestConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Shutdown(context.Background()); err != nil {
		t.Errorf("expected nil from Shutdown with observability disabled, got %v", err)
	}
}
