package ratelimit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Rule defines a per-route quota. A rule matches a call by exactly one of:
// an explicit endpoint set, an HTTP method list, or a regex pattern applied
// to the endpoint. Rules are static configuration loaded once at startup.
type Rule struct {
	// Name identifies the rule in denials, logs, and metrics.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	// Capacity is the bucket size. Zero always denies.
	Capacity int `yaml:"capacity" mapstructure:"capacity" validate:"gte=0"`
	// Window is the refill window. The bucket refills continuously at
	// Capacity/Window. Must be positive.
	Window time.Duration `yaml:"window" mapstructure:"window"`
	// Endpoints is an explicit endpoint-key set matcher.
	Endpoints []string `yaml:"endpoints" mapstructure:"endpoints"`
	// Methods is an HTTP method list matcher.
	Methods []string `yaml:"methods" mapstructure:"methods"`
	// Pattern is a regex matcher applied to the endpoint key.
	Pattern string `yaml:"pattern" mapstructure:"pattern"`

	re *regexp.Regexp
}

// Validate checks the rule and compiles its pattern. Rules with a
// non-positive window or with zero or multiple matchers are rejected.
func (r *Rule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("ratelimit: rule %q: %w", r.Name, err)
	}
	if r.Window <= 0 {
		return fmt.Errorf("ratelimit: rule %q: window must be positive (got %v)", r.Name, r.Window)
	}

	matchers := 0
	if len(r.Endpoints) > 0 {
		matchers++
	}
	if len(r.Methods) > 0 {
		matchers++
	}
	if r.Pattern != "" {
		matchers++
	}
	if matchers != 1 {
		return fmt.Errorf("ratelimit: rule %q: exactly one of endpoints, methods, or pattern is required", r.Name)
	}

	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("ratelimit: rule %q: invalid pattern: %w", r.Name, err)
		}
		r.re = re
	}
	return nil
}

// Matches reports whether the rule applies to the given call.
func (r *Rule) Matches(method, endpoint string) bool {
	switch {
	case len(r.Endpoints) > 0:
		for _, e := range r.Endpoints {
			if e == endpoint {
				return true
			}
		}
		return false
	case len(r.Methods) > 0:
		for _, m := range r.Methods {
			if strings.EqualFold(m, method) {
				return true
			}
		}
		return false
	case r.re != nil:
		return r.re.MatchString(endpoint)
	default:
		return false
	}
}

// refillPerMs returns the refill rate in tokens per millisecond.
func (r *Rule) refillPerMs() float64 {
	return float64(r.Capacity) / float64(r.Window.Milliseconds())
}
