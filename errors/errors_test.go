package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestFromStatusCode_SuccessReturnsNil(t *testing.T) {
	for _, status := range []int{200, 201, 204, 299} {
		if err := FromStatusCode(status, nil, 0); err != nil {
			t.Errorf("status %d: expected nil, got %v", status, err)
		}
	}
}

func TestFromStatusCode_Classification(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrCodeUnauthorized, false},
		{403, ErrCodeForbidden, false},
		{404, ErrCodeNotFound, false},
		{422, ErrCodeInvalidInput, false},
		{429, ErrCodeRateLimitExceeded, true},
		{500, ErrCodeServer, true},
		{501, ErrCodeServer, false},
		{502, ErrCodeServer, true},
		{503, ErrCodeServiceUnavailable, true},
		{504, ErrCodeServer, true},
		{505, ErrCodeServer, false},
	}

	for _, tt := range tests {
		err := FromStatusCode(tt.status, nil, 0)
		if err == nil {
			t.Errorf("status %d: expected error, got nil", tt.status)
			continue
		}
		if err.Code != tt.code {
			t.Errorf("status %d: expected code %s, got %s", tt.status, tt.code, err.Code)
		}
		if err.Retryable != tt.retryable {
			t.Errorf("status %d: expected retryable=%v, got %v", tt.status, tt.retryable, err.Retryable)
		}
		if err.HTTPStatus != tt.status {
			t.Errorf("status %d: expected HTTPStatus %d, got %d", tt.status, tt.status, err.HTTPStatus)
		}
	}
}

func TestFromStatusCode_CarriesRetryAfterHint(t *testing.T) {
	err := FromStatusCode(429, nil, 5*time.Second)
	if err.RetryAfter != 5*time.Second {
		t.Errorf("expected 5s hint, got %v", err.RetryAfter)
	}
	if RetryAfterHint(err) != 5*time.Second {
		t.Errorf("RetryAfterHint lost the hint: %v", RetryAfterHint(err))
	}
}

func TestCodeOf_UnwrapsWrappedErrors(t *testing.T) {
	inner := CircuitOpen("billing")
	wrapped := fmt.Errorf("execute request: %w", inner)

	if CodeOf(wrapped) != ErrCodeCircuitOpen {
		t.Errorf("expected CIRCUIT_OPEN, got %s", CodeOf(wrapped))
	}
	if !IsCode(wrapped, ErrCodeCircuitOpen) {
		t.Error("IsCode failed on wrapped error")
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	if CodeOf(stderrors.New("boom")) != ErrCodeUnknown {
		t.Errorf("expected UNKNOWN for plain error")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		code ErrorCode
		cat  Category
	}{
		{ErrCodeRateLimitExceeded, CategoryLocal},
		{ErrCodeCircuitOpen, CategoryLocal},
		{ErrCodeNetwork, CategoryTransport},
		{ErrCodeTimeout, CategoryTransport},
		{ErrCodeTokenExpired, CategoryAuth},
		{ErrCodeServer, CategoryServer},
		{ErrCodeNotFound, CategoryClient},
		{ErrorCode("SOMETHING_ELSE"), CategoryUnknown},
	}
	for _, tt := range tests {
		if got := CategoryOf(tt.code); got != tt.cat {
			t.Errorf("%s: expected %s, got %s", tt.code, tt.cat, got)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Network(stderrors.New("refused"))) {
		t.Error("network errors should be retryable")
	}
	if IsRetryable(TokenExpired()) {
		t.Error("token expiry should not be retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestRateLimited_WaitHintAndRule(t *testing.T) {
	err := RateLimited("search-burst", 1200*time.Millisecond)
	if err.RetryAfter != 1200*time.Millisecond {
		t.Errorf("expected wait hint, got %v", err.RetryAfter)
	}
	if err.Details["rule"] != "search-burst" {
		t.Errorf("expected rule detail, got %v", err.Details["rule"])
	}
	if !err.Retryable {
		t.Error("rate limit denial should be retryable")
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Network(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}
