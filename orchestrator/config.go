package orchestrator

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/relaykit/config"
	"github.com/kbukum/relaykit/httpclient"
	"github.com/kbukum/relaykit/logger"
	"github.com/kbukum/relaykit/ratelimit"
	"github.com/kbukum/relaykit/resilience"
)

var validate = validator.New()

// RetrySettings is the declarative slice of the retry policy. Hooks and
// predicates are wired by the orchestrator itself.
type RetrySettings struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor" mapstructure:"backoff_factor" validate:"gte=0"`
	JitterMax      time.Duration `yaml:"jitter_max" mapstructure:"jitter_max"`
}

// BreakerSettings configures the per-client circuit breakers.
type BreakerSettings struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"gte=0"`
	SuccessThreshold int           `yaml:"success_threshold" mapstructure:"success_threshold" validate:"gte=0"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls" validate:"gte=0"`
}

// ObservabilitySettings configures the OpenTelemetry export pipeline.
// When enabled, the orchestrator initializes the global meter and tracer
// providers, mirrors its counters to OTel instruments, and wraps every
// call in a span. Disabled by default.
type ObservabilitySettings struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// Insecure allows plain HTTP export, for development collectors.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`

	// SampleRate is the trace sampling rate in [0, 1].
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`

	// MetricsInterval is the metric export interval.
	MetricsInterval time.Duration `yaml:"metrics_interval" mapstructure:"metrics_interval"`
}

// Config configures the orchestrator and everything it composes.
type Config struct {
	// Base carries application identity for logging and observability.
	Base config.BaseConfig `yaml:"base" mapstructure:"base"`

	// BaseURL applies to clients that do not set their own.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// DefaultTimeout applies to clients that do not set their own.
	DefaultTimeout time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`

	// Clients declares the backend clients by name.
	Clients map[string]httpclient.Config `yaml:"clients" mapstructure:"clients"`

	// Rules are the rate limit rules shared by all clients.
	Rules []ratelimit.Rule `yaml:"rules" mapstructure:"rules"`

	// Retry is the retry policy applied around every network call.
	Retry RetrySettings `yaml:"retry" mapstructure:"retry"`

	// Breaker configures the per-client circuit breakers.
	Breaker BreakerSettings `yaml:"breaker" mapstructure:"breaker"`

	// MaxConcurrent bounds in-flight network calls across all clients.
	// Zero disables the bound.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`

	// MaxWait is how long a call waits for a concurrency slot before
	// being rejected. Zero rejects immediately when full.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`

	// MetricsEnabled toggles the in-process aggregator. Default true.
	MetricsEnabled *bool `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`

	// Observability configures OTel metric and trace export.
	Observability ObservabilitySettings `yaml:"observability" mapstructure:"observability"`

	// Logging configures the shared logger.
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills zero-value fields with the defaults used across
// the toolkit.
func (c *Config) ApplyDefaults() {
	c.Base.ApplyDefaults()
	c.Logging.ApplyDefaults()

	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}

	retryDefaults := resilience.DefaultRetryConfig()
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = retryDefaults.MaxAttempts
	}
	if c.Retry.InitialBackoff <= 0 {
		c.Retry.InitialBackoff = retryDefaults.InitialBackoff
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = retryDefaults.MaxBackoff
	}
	if c.Retry.BackoffFactor <= 0 {
		c.Retry.BackoffFactor = retryDefaults.BackoffFactor
	}
	if c.Retry.JitterMax <= 0 {
		c.Retry.JitterMax = retryDefaults.JitterMax
	}

	breakerDefaults := resilience.DefaultCircuitBreakerConfig("")
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = breakerDefaults.FailureThreshold
	}
	if c.Breaker.SuccessThreshold <= 0 {
		c.Breaker.SuccessThreshold = breakerDefaults.SuccessThreshold
	}
	if c.Breaker.ResetTimeout <= 0 {
		c.Breaker.ResetTimeout = breakerDefaults.ResetTimeout
	}
	if c.Breaker.HalfOpenMaxCalls <= 0 {
		c.Breaker.HalfOpenMaxCalls = breakerDefaults.HalfOpenMaxCalls
	}

	if c.MaxConcurrent > 0 && c.MaxWait <= 0 {
		c.MaxWait = c.DefaultTimeout
	}

	if c.Observability.Enabled {
		if c.Observability.Endpoint == "" {
			c.Observability.Endpoint = "localhost:4318"
			c.Observability.Insecure = true
		}
		if c.Observability.SampleRate <= 0 {
			c.Observability.SampleRate = 1.0
		}
		if c.Observability.MetricsInterval <= 0 {
			c.Observability.MetricsInterval = 15 * time.Second
		}
	}

	for name, cc := range c.Clients {
		if cc.Name == "" {
			cc.Name = name
		}
		if cc.BaseURL == "" {
			cc.BaseURL = c.BaseURL
		}
		if cc.Timeout <= 0 {
			cc.Timeout = c.DefaultTimeout
		}
		c.Clients[name] = cc
	}
}

// Validate checks the configuration. Rules are validated by the limiter
// at construction; client configs validate themselves.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("orchestrator: config: %w", err)
	}
	if len(c.Clients) == 0 {
		return fmt.Errorf("orchestrator: at least one client is required")
	}
	for name, cc := range c.Clients {
		if cc.BaseURL == "" {
			return fmt.Errorf("orchestrator: client %q: base_url is required", name)
		}
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("orchestrator: client %q: %w", name, err)
		}
	}
	return nil
}

func (c *Config) metricsEnabled() bool {
	return c.MetricsEnabled == nil || *c.MetricsEnabled
}
