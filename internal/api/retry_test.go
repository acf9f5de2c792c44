package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	t.Setenv("TUSK_MAX_RETRIES", "")
	t.Setenv("TUSK_RETRY_DELAY", "")

	p := DefaultRetryPolicy()
	if p.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", p.MaxRetries, DefaultMaxRetries)
	}
	if p.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", p.RetryDelay, DefaultRetryDelay)
	}
	if len(p.AbortOn) != len(DefaultAbortStatusCodes) {
		t.Errorf("AbortOn = %v", p.AbortOn)
	}
}

func TestDefaultRetryPolicy_WithEnvVars(t *testing.T) {
	t.Setenv("TUSK_MAX_RETRIES", "5")
	t.Setenv("TUSK_RETRY_DELAY", "250ms")

	p := DefaultRetryPolicy()
	if p.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", p.MaxRetries)
	}
	if p.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %v, want 250ms", p.RetryDelay)
	}
}

func TestDefaultRetryPolicy_InvalidEnvVars(t *testing.T) {
	t.Setenv("TUSK_MAX_RETRIES", "lots")
	t.Setenv("TUSK_RETRY_DELAY", "soon")

	p := DefaultRetryPolicy()
	if p.MaxRetries != DefaultMaxRetries || p.RetryDelay != DefaultRetryDelay {
		t.Errorf("expected defaults, got %+v", p)
	}
}

func TestRetryPolicy_NormalizedFallsBackToDefaults(t *testing.T) {
	p := RetryPolicy{}.normalized()
	if p.MaxRetries != DefaultMaxRetries || p.RetryDelay != DefaultRetryDelay {
		t.Errorf("normalized() = %+v", p)
	}
	if !p.aborts(http.StatusNotFound) {
		t.Error("expected 404 in default abort set")
	}
}

func TestRetryPolicy_WithOverrides(t *testing.T) {
	base := RetryPolicy{MaxRetries: 3, RetryDelay: time.Second}

	got := base.withOverrides(RetryOptions{MaxRetries: 6})
	if got.MaxRetries != 6 || got.RetryDelay != time.Second {
		t.Errorf("withOverrides() = %+v", got)
	}
	got = base.withOverrides(RetryOptions{})
	if got.MaxRetries != 3 || got.RetryDelay != time.Second {
		t.Errorf("zero overrides changed policy: %+v", got)
	}
}

func TestRetryPolicy_BackoffIsLinear(t *testing.T) {
	p := RetryPolicy{RetryDelay: 100 * time.Millisecond}
	for attempt, want := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond} {
		if got := p.backoff(0, 0, attempt, nil); got != want {
			t.Errorf("backoff(attempt %d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestRetryPolicy_CheckRetry(t *testing.T) {
	p := RetryPolicy{}.normalized()
	ctx := context.Background()

	tests := []struct {
		name   string
		status int
		err    error
		retry  bool
	}{
		{"ok", http.StatusOK, nil, false},
		{"created", http.StatusCreated, nil, false},
		{"bad request", http.StatusBadRequest, nil, false},
		{"unauthorized", http.StatusUnauthorized, nil, false},
		{"forbidden", http.StatusForbidden, nil, false},
		{"not found", http.StatusNotFound, nil, false},
		{"not acceptable", http.StatusNotAcceptable, nil, false},
		{"gone", http.StatusGone, nil, false},
		{"unprocessable", http.StatusUnprocessableEntity, nil, false},
		{"conflict", http.StatusConflict, nil, true},
		{"rate limited", http.StatusTooManyRequests, nil, true},
		{"server error", http.StatusInternalServerError, nil, true},
		{"bad gateway", http.StatusBadGateway, nil, true},
		{"transport error", 0, errors.New("connection reset"), true},
		{"certificate rejected", 0, &CertificateTrustError{Reason: "untrusted"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.err == nil {
				resp = &http.Response{StatusCode: tt.status}
			}
			retry, _ := p.checkRetry(ctx, resp, tt.err)
			if retry != tt.retry {
				t.Errorf("checkRetry() = %v, want %v", retry, tt.retry)
			}
		})
	}
}

func TestRetryPolicy_CheckRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	retry, err := RetryPolicy{}.normalized().checkRetry(ctx, nil, errors.New("boom"))
	if retry {
		t.Error("expected no retry after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
