package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/relaykit/errors"
)

// credentialStrategy refreshes the bearer credential so the caller can
// replay the original request once.
type credentialStrategy struct {
	refresher TokenRefresher
}

func (credentialStrategy) Name() string { return "credential-refresh" }

func (s credentialStrategy) Recover(ctx context.Context, _ *errors.AppError) Result {
	if s.refresher == nil {
		return Result{Suggestion: "Please sign in again."}
	}

	token, err := s.refresher.RefreshToken(ctx)
	if err != nil || token == "" {
		return Result{Suggestion: "Your session could not be renewed. Please sign in again."}
	}
	return Result{Recovered: true, Suggestion: "Credential refreshed; retrying the request."}
}

// rateLimitStrategy cannot remediate the error, it only turns the wait
// hint into a human-readable suggestion.
type rateLimitStrategy struct{}

func (rateLimitStrategy) Name() string { return "rate-limit-wait" }

func (rateLimitStrategy) Recover(_ context.Context, appErr *errors.AppError) Result {
	if appErr.RetryAfter > 0 {
		wait := appErr.RetryAfter.Round(time.Second)
		if wait < time.Second {
			wait = time.Second
		}
		return Result{Suggestion: fmt.Sprintf("Too many requests. Try again in %s.", wait)}
	}
	return Result{Suggestion: "Too many requests. Please wait a moment before retrying."}
}

// networkStrategy covers connection and timeout failures.
type networkStrategy struct{}

func (networkStrategy) Name() string { return "network-check" }

func (networkStrategy) Recover(_ context.Context, _ *errors.AppError) Result {
	return Result{Suggestion: "Unable to reach the service. Check your connection and try again."}
}

// defaultStrategy is the final fallback for unclassified errors.
type defaultStrategy struct{}

func (defaultStrategy) Name() string { return "default" }

func (defaultStrategy) Recover(_ context.Context, _ *errors.AppError) Result {
	return Result{Suggestion: "An unexpected error occurred. Please try again later."}
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	// StrategyName identifies the strategy in logs.
	StrategyName string
	// Fn performs the recovery attempt.
	Fn func(ctx context.Context, appErr *errors.AppError) Result
}

func (s StrategyFunc) Name() string { return s.StrategyName }

func (s StrategyFunc) Recover(ctx context.Context, appErr *errors.AppError) Result {
	return s.Fn(ctx, appErr)
}
