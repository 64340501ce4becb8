package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/relaykit/errors"
	"github.com/kbukum/relaykit/httpclient"
	"github.com/kbukum/relaykit/logger"
	"github.com/kbukum/relaykit/metrics"
	"github.com/kbukum/relaykit/ratelimit"
	"github.com/kbukum/relaykit/recovery"
	"github.com/kbukum/relaykit/resilience"
)

// RequestOptions carries per-call overrides for ExecuteRequest.
type RequestOptions struct {
	// Headers are merged over the client's default headers.
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Timeout overrides the client timeout for this call. Applied as a
	// context deadline so cancellation also aborts retry sleeps.
	Timeout time.Duration
	// NoRetry disables the retry loop for this call.
	NoRetry bool
}

// Callbacks let the embedding application observe terminal outcomes.
type Callbacks struct {
	// OnUnauthorized fires when credential refresh yields no usable token.
	OnUnauthorized func()
	// OnError fires once per terminal failure, after recovery gave up.
	OnError func(client string, err error)
}

// Orchestrator routes every outbound call through rate limiting, circuit
// breaking, retries, metrics, and error recovery. It is safe for
// concurrent use.
type Orchestrator struct {
	cfg       Config
	clients   map[string]*httpclient.Client
	breakers  map[string]*resilience.CircuitBreaker
	limiter   *ratelimit.Limiter
	bulkhead  *resilience.Bulkhead
	agg       *metrics.Aggregator
	recovery  *recovery.Manager
	tokens    TokenSource
	callbacks Callbacks
	tracer    trace.Tracer
	shutdowns []func(context.Context) error
	log       *logger.Logger
}

// Option configures the orchestrator beyond its declarative Config.
type Option func(*Orchestrator)

// WithTokenSource installs the credential source used for rotation and
// auth-failure recovery.
func WithTokenSource(ts TokenSource) Option {
	return func(o *Orchestrator) { o.tokens = ts }
}

// WithCallbacks installs terminal-outcome callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(o *Orchestrator) { o.callbacks = cb }
}

// WithAggregator replaces the default metrics aggregator, e.g. to attach
// an OTel meter via metrics.WithMeter.
func WithAggregator(a *metrics.Aggregator) Option {
	return func(o *Orchestrator) { o.agg = a }
}

// WithRecoveryManager replaces the default recovery manager.
func WithRecoveryManager(m *recovery.Manager) Option {
	return func(o *Orchestrator) { o.recovery = m }
}

// WithTracer enables a span around every orchestrated call.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New builds an orchestrator from configuration. Collaborators not
// supplied via options are constructed here; this is the composition root.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		clients:  make(map[string]*httpclient.Client, len(cfg.Clients)),
		breakers: make(map[string]*resilience.CircuitBreaker, len(cfg.Clients)),
		log:      logger.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}

	limiter, err := ratelimit.NewLimiter(cfg.Rules...)
	if err != nil {
		return nil, err
	}
	o.limiter = limiter

	for name, cc := range cfg.Clients {
		client, err := httpclient.New(cc)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: client %q: %w", name, err)
		}
		o.clients[name] = client

		bc := resilience.CircuitBreakerConfig{
			Name:             name,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			ResetTimeout:     cfg.Breaker.ResetTimeout,
			HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
			OnStateChange:    o.logStateChange,
		}
		o.breakers[name] = resilience.NewCircuitBreaker(bc)
	}

	if cfg.MaxConcurrent > 0 {
		o.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "orchestrator",
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.MaxWait,
		})
	}

	if cfg.Observability.Enabled {
		if err := o.initObservability(context.Background()); err != nil {
			return nil, err
		}
	}

	if o.agg == nil && cfg.metricsEnabled() {
		o.agg = metrics.NewAggregator(o.meterOptions()...)
	}
	if o.recovery == nil {
		o.recovery = recovery.NewManager(refresherAdapter{o})
	}

	return o, nil
}

// ExecuteRequest routes one call through the full pipeline. Local denials
// (rate limit, open circuit) return typed errors without touching the
// network. A failure that the recovery manager reports as recovered is
// replayed exactly once.
func (o *Orchestrator) ExecuteRequest(ctx context.Context, client, method, endpoint string, payload any, opts *RequestOptions) (*httpclient.Response, error) {
	if o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.Start(ctx, "relay.execute", trace.WithAttributes(
			attribute.String("relay.client", client),
			attribute.String("http.method", method),
			attribute.String("relay.endpoint", endpoint),
		))
		defer span.End()

		resp, err := o.execute(ctx, client, method, endpoint, payload, opts, false)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		}
		return resp, err
	}
	return o.execute(ctx, client, method, endpoint, payload, opts, false)
}

// execute is one pass of the pipeline. isReplay marks the single
// post-recovery replay; a replayed call never recovers again.
func (o *Orchestrator) execute(ctx context.Context, clientName, method, endpoint string, payload any, opts *RequestOptions, isReplay bool) (*httpclient.Response, error) {
	client, ok := o.clients[clientName]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown client %q", clientName))
	}

	requestID := uuid.NewString()
	start := time.Now()

	resp, err := o.attempt(ctx, client, clientName, method, endpoint, payload, opts, requestID)
	o.record(ctx, requestID, clientName, method, endpoint, time.Since(start), err)

	if err == nil {
		return resp, nil
	}

	if !isReplay {
		if result := o.recovery.AttemptRecovery(ctx, err); result.Recovered {
			o.log.Info("recovered, replaying request", logger.Fields(
				logger.FieldRequestID, requestID,
				logger.FieldClient, clientName,
				logger.FieldEndpoint, endpoint,
			))
			return o.execute(ctx, clientName, method, endpoint, payload, opts, true)
		}
	}

	o.log.Warn("request failed", logger.Fields(
		logger.FieldRequestID, requestID,
		logger.FieldClient, clientName,
		logger.FieldMethod, method,
		logger.FieldEndpoint, endpoint,
		"code", string(errors.CodeOf(err)),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	if o.callbacks.OnError != nil {
		o.callbacks.OnError(clientName, err)
	}
	return resp, err
}

// attempt runs limiter, breaker, and the retry loop for one pipeline pass.
func (o *Orchestrator) attempt(ctx context.Context, client *httpclient.Client, clientName, method, endpoint string, payload any, opts *RequestOptions, requestID string) (*httpclient.Response, error) {
	if opts != nil && opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	decision := o.limiter.Check(method, endpoint)
	if !decision.Allowed {
		return nil, errors.RateLimited(decision.Rule, decision.WaitTime)
	}

	breaker := o.breakers[clientName]
	req := httpclient.Request{Method: method, Path: endpoint, Body: payload}
	if opts != nil {
		req.Headers = opts.Headers
		req.Query = opts.Query
	}

	send := func() (*httpclient.Response, error) {
		return o.sendThroughBreaker(ctx, breaker, client, clientName, req)
	}
	if o.bulkhead != nil {
		inner := send
		send = func() (*httpclient.Response, error) {
			resp, err := resilience.ExecuteWithResult(o.bulkhead, ctx, inner)
			if stderrors.Is(err, resilience.ErrBulkheadFull) || stderrors.Is(err, resilience.ErrBulkheadTimeout) {
				return nil, errors.New(errors.ErrCodeServiceUnavailable, "Too many requests in flight. Please try again.").WithCause(err)
			}
			return resp, err
		}
	}

	if opts != nil && opts.NoRetry {
		return send()
	}

	retryCfg := o.retryConfig(requestID, clientName, endpoint)
	resp, err := resilience.Retry(ctx, retryCfg, send)
	if err != nil && retryCfg.RetryIf(err) && retryCfg.MaxAttempts > 1 {
		// Every attempt was consumed on a retryable failure.
		return resp, errors.RetriesExhausted(retryCfg.MaxAttempts, err)
	}
	return resp, err
}

// sendThroughBreaker executes one network attempt behind the client's
// breaker. Only transport and server failures trip the breaker; client
// errors like 404 pass through without counting.
func (o *Orchestrator) sendThroughBreaker(ctx context.Context, breaker *resilience.CircuitBreaker, client *httpclient.Client, clientName string, req httpclient.Request) (*httpclient.Response, error) {
	var resp *httpclient.Response
	var sendErr error

	execErr := breaker.Execute(func() error {
		resp, sendErr = client.Send(ctx, req)
		if sendErr != nil && tripsBreaker(sendErr) {
			return sendErr
		}
		return nil
	})
	if stderrors.Is(execErr, resilience.ErrCircuitOpen) {
		return nil, errors.CircuitOpen(clientName)
	}
	return resp, sendErr
}

// tripsBreaker reports whether a failure counts against the breaker.
func tripsBreaker(err error) bool {
	e := errors.AsAppError(err)
	if e == nil {
		return true
	}
	switch e.Category() {
	case errors.CategoryTransport, errors.CategoryServer:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) retryConfig(requestID, clientName, endpoint string) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    o.cfg.Retry.MaxAttempts,
		InitialBackoff: o.cfg.Retry.InitialBackoff,
		MaxBackoff:     o.cfg.Retry.MaxBackoff,
		BackoffFactor:  o.cfg.Retry.BackoffFactor,
		JitterMax:      o.cfg.Retry.JitterMax,
		RetryIf:        retryable,
		WaitHint:       errors.RetryAfterHint,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			o.log.Debug("retrying request", logger.Fields(
				logger.FieldRequestID, requestID,
				logger.FieldClient, clientName,
				logger.FieldEndpoint, endpoint,
				logger.FieldAttempt, attempt,
				"backoff_ms", backoff.Milliseconds(),
				logger.FieldError, err.Error(),
			))
		},
	}
}

// retryable gates the retry loop: local denials never retry, everything
// else follows the taxonomy's retryable flag.
func retryable(err error) bool {
	if !resilience.DefaultRetryIf(err) {
		return false
	}
	if errors.IsCode(err, errors.ErrCodeCircuitOpen) {
		return false
	}
	return errors.IsRetryable(err)
}

// record folds the call outcome into the aggregator, exactly once per
// pipeline pass.
func (o *Orchestrator) record(ctx context.Context, requestID, clientName, method, endpoint string, elapsed time.Duration, err error) {
	if o.agg == nil {
		return
	}
	code := ""
	if err != nil {
		code = string(errors.CodeOf(err))
	}
	o.agg.Record(ctx, metrics.Sample{
		RequestID: requestID,
		Client:    clientName,
		Method:    method,
		Endpoint:  endpoint,
		Duration:  elapsed,
		Success:   err == nil,
		Code:      code,
	})
}

// Metrics returns a snapshot of the rolling counters. An empty snapshot
// is returned when metrics are disabled.
func (o *Orchestrator) Metrics() metrics.Snapshot {
	if o.agg == nil {
		return metrics.Snapshot{Endpoints: map[string]metrics.EndpointMetrics{}}
	}
	return o.agg.Snapshot()
}

// ResetMetrics clears all rolling counters.
func (o *Orchestrator) ResetMetrics() {
	if o.agg != nil {
		o.agg.Reset()
	}
}

// UpdateAuthToken refreshes the bearer credential from the token source
// and propagates it to every client. An empty token or a refresh failure
// fires OnUnauthorized.
func (o *Orchestrator) UpdateAuthToken(ctx context.Context) error {
	if o.tokens == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no token source configured")
	}

	token, err := o.tokens.Token(ctx)
	if err != nil || token == "" {
		if o.callbacks.OnUnauthorized != nil {
			o.callbacks.OnUnauthorized()
		}
		if err != nil {
			return errors.Unauthorized().WithCause(err)
		}
		return errors.Unauthorized()
	}

	o.setTokenAll(token)
	return nil
}

func (o *Orchestrator) setTokenAll(token string) {
	for _, client := range o.clients {
		client.SetToken(token)
	}
}

// Client returns a registered client by name, or nil.
func (o *Orchestrator) Client(name string) *httpclient.Client {
	return o.clients[name]
}

// Limiter exposes the shared rate limiter, mainly for introspection.
func (o *Orchestrator) Limiter() *ratelimit.Limiter {
	return o.limiter
}

// BreakerState returns the circuit state for a client, or closed for an
// unknown name.
func (o *Orchestrator) BreakerState(client string) resilience.State {
	if cb, ok := o.breakers[client]; ok {
		return cb.State()
	}
	return resilience.StateClosed
}

func (o *Orchestrator) logStateChange(name string, from, to resilience.State) {
	o.log.Info("circuit state changed", logger.Fields(
		logger.FieldClient, name,
		"from", from.String(),
		logger.FieldState, to.String(),
	))
}

// refresherAdapter lets the recovery manager rotate credentials through
// the orchestrator: a successful refresh is propagated to all clients
// before the manager authorizes a replay.
type refresherAdapter struct {
	o *Orchestrator
}

func (r refresherAdapter) RefreshToken(ctx context.Context) (string, error) {
	if r.o.tokens == nil {
		return "", nil
	}
	token, err := r.o.tokens.Token(ctx)
	if err != nil || token == "" {
		if r.o.callbacks.OnUnauthorized != nil {
			r.o.callbacks.OnUnauthorized()
		}
		return "", err
	}
	r.o.setTokenAll(token)
	return token, nil
}
