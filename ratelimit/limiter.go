package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/kbukum/relaykit/logger"
)

// Decision is the limiter's answer for a single call. The limiter never
// blocks; the caller decides whether to wait, queue, or fail.
type Decision struct {
	// Allowed reports whether every matching rule admitted the call.
	Allowed bool
	// WaitTime is how long until the first denying rule would admit the
	// call. Zero when allowed or when the rule can never admit.
	WaitTime time.Duration
	// Rule names the denying rule, empty when allowed.
	Rule string
}

// Limiter enforces per-route quotas with one token bucket per
// (rule, method, endpoint-key) combination, created lazily.
type Limiter struct {
	rules []Rule
	log   *logger.Logger

	mu      sync.Mutex
	buckets map[string]*bucket

	now func() time.Time
}

// NewLimiter validates the rules and builds a limiter. Invalid rules
// (non-positive window, bad pattern, missing matcher) fail construction.
func NewLimiter(rules ...Rule) (*Limiter, error) {
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &Limiter{
		rules:   rules,
		log:     logger.WithComponent("ratelimit"),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}, nil
}

// Check answers whether a call to (method, endpoint) is admitted by every
// matching rule. Tokens debited from earlier rules are not refunded when a
// later rule denies; the limiter fails fast on the first denial.
func (l *Limiter) Check(method, endpoint string) Decision {
	now := l.now()

	for i := range l.rules {
		rule := &l.rules[i]
		if !rule.Matches(method, endpoint) {
			continue
		}

		b := l.bucketFor(rule, method, endpoint, now)
		ok, wait := b.take(now)
		if !ok {
			l.log.Debug("rate limit denied", logger.Fields(
				logger.FieldRule, rule.Name,
				logger.FieldMethod, method,
				logger.FieldEndpoint, endpoint,
				"wait_ms", wait.Milliseconds(),
			))
			return Decision{Allowed: false, WaitTime: wait, Rule: rule.Name}
		}
	}

	return Decision{Allowed: true}
}

// Tokens returns the current token level of the bucket a rule holds for
// the given call, or the rule capacity if the bucket does not exist yet.
func (l *Limiter) Tokens(ruleName, method, endpoint string) float64 {
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[bucketKey(ruleName, method, endpoint)]
	l.mu.Unlock()
	if !ok {
		for i := range l.rules {
			if l.rules[i].Name == ruleName {
				return float64(l.rules[i].Capacity)
			}
		}
		return 0
	}
	return b.level(now)
}

// Rules returns the registered rules.
func (l *Limiter) Rules() []Rule {
	return l.rules
}

func (l *Limiter) bucketFor(rule *Rule, method, endpoint string, now time.Time) *bucket {
	key := bucketKey(rule.Name, method, endpoint)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(rule.Capacity, rule.refillPerMs(), now)
		l.buckets[key] = b
	}
	return b
}

func bucketKey(rule, method, endpoint string) string {
	return rule + "|" + strings.ToUpper(method) + ":" + endpoint
}
