package recovery

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/relaykit/errors"
)

type fakeRefresher struct {
	token string
	err   error
	calls int
}

func (f *fakeRefresher) RefreshToken(_ context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

func TestAttemptRecovery_TokenExpiredRefreshesCredential(t *testing.T) {
	refresher := &fakeRefresher{token: "fresh-token"}
	m := NewManager(refresher)

	result := m.AttemptRecovery(context.Background(), errors.TokenExpired())

	if !result.Recovered {
		t.Error("expected recovered=true after a successful refresh")
	}
	if refresher.calls != 1 {
		t.Errorf("expected 1 refresh call, got %d", refresher.calls)
	}
}

func TestAttemptRecovery_RefreshFailureIsNotRecovered(t *testing.T) {
	refresher := &fakeRefresher{err: stderrors.New("refresh endpoint down")}
	m := NewManager(refresher)

	result := m.AttemptRecovery(context.Background(), errors.TokenExpired())

	if result.Recovered {
		t.Error("expected recovered=false when refresh fails")
	}
	if result.Suggestion == "" {
		t.Error("expected a suggestion")
	}
}

func TestAttemptRecovery_EmptyTokenIsNotRecovered(t *testing.T) {
	m := NewManager(&fakeRefresher{token: ""})

	result := m.AttemptRecovery(context.Background(), errors.Unauthorized())

	if result.Recovered {
		t.Error("expected recovered=false for an empty refreshed token")
	}
}

func TestAttemptRecovery_NilRefresher(t *testing.T) {
	m := NewManager(nil)

	result := m.AttemptRecovery(context.Background(), errors.TokenExpired())

	if result.Recovered {
		t.Error("credential errors are not recoverable without a refresher")
	}
}

func TestAttemptRecovery_RateLimitSuggestsWait(t *testing.T) {
	m := NewManager(nil)

	err := errors.RateLimited("burst", 5*time.Second)
	result := m.AttemptRecovery(context.Background(), err)

	if result.Recovered {
		t.Error("rate limit denials are never recovered")
	}
	if !strings.Contains(result.Suggestion, "5s") {
		t.Errorf("expected wait hint in suggestion, got %q", result.Suggestion)
	}
}

func TestAttemptRecovery_NetworkFallsBackToCategory(t *testing.T) {
	m := NewManager(nil)

	result := m.AttemptRecovery(context.Background(), errors.Network(stderrors.New("refused")))

	if result.Recovered {
		t.Error("network errors are never recovered")
	}
	if !strings.Contains(result.Suggestion, "connection") {
		t.Errorf("expected connectivity suggestion, got %q", result.Suggestion)
	}

	// Timeout shares the transport category and gets the same strategy.
	result = m.AttemptRecovery(context.Background(), errors.Timeout("GET /users", nil))
	if !strings.Contains(result.Suggestion, "connection") {
		t.Errorf("expected connectivity suggestion for timeout, got %q", result.Suggestion)
	}
}

func TestAttemptRecovery_UnknownUsesDefault(t *testing.T) {
	m := NewManager(nil)

	result := m.AttemptRecovery(context.Background(), stderrors.New("something odd"))

	if result.Recovered {
		t.Error("unknown errors are never recovered")
	}
	if result.Suggestion == "" {
		t.Error("expected a generic suggestion")
	}
}

func TestRegister_CustomStrategyOverridesBuiltin(t *testing.T) {
	m := NewManager(nil)

	m.Register(errors.ErrCodeRateLimitExceeded, StrategyFunc{
		StrategyName: "custom",
		Fn: func(_ context.Context, _ *errors.AppError) Result {
			return Result{Recovered: true, Suggestion: "custom handled"}
		},
	})

	result := m.AttemptRecovery(context.Background(), errors.RateLimited("r", 0))
	if !result.Recovered || result.Suggestion != "custom handled" {
		t.Errorf("custom strategy not used: %+v", result)
	}
}

func TestLookup_ExactCodeBeatsCategory(t *testing.T) {
	m := NewManager(nil)

	m.RegisterCategory(errors.CategoryTransport, StrategyFunc{
		StrategyName: "cat",
		Fn: func(_ context.Context, _ *errors.AppError) Result {
			return Result{Suggestion: "category"}
		},
	})
	m.Register(errors.ErrCodeTimeout, StrategyFunc{
		StrategyName: "code",
		Fn: func(_ context.Context, _ *errors.AppError) Result {
			return Result{Suggestion: "code"}
		},
	})

	result := m.AttemptRecovery(context.Background(), errors.Timeout("op", nil))
	if result.Suggestion != "code" {
		t.Errorf("expected exact-code strategy, got %q", result.Suggestion)
	}
}
