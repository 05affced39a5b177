package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingSleep returns a Sleep hook that records requested delays without
// actually sleeping, keeping retry tests deterministic and instant.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	var calls int
	val, err := Retry(context.Background(), DefaultBackoff(), func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" || calls != 1 {
		t.Errorf("got val=%q calls=%d, want ok/1", val, calls)
	}
}

func TestRetry_SuccessAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	b := Backoff{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2.0,
		Sleep:       recordingSleep(&delays),
	}

	var calls int
	_, err := Retry(context.Background(), b, func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("503"), 503)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(delays))
	}
	// Jitter is zero, so delays are exact.
	if delays[0] != 100*time.Millisecond || delays[1] != 200*time.Millisecond {
		t.Errorf("unexpected backoff sequence: %v", delays)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	b := Backoff{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: recordingSleep(&delays)}

	var calls int
	_, err := Retry(context.Background(), b, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("always down"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_NonTransientNotRetried(t *testing.T) {
	var calls int
	b := Backoff{MaxAttempts: 3, BaseDelay: time.Millisecond}
	_, err := Retry(context.Background(), b, func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("404 not found")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-transient error should not be retried, got %d calls", calls)
	}
}

func TestRetry_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	b := Backoff{MaxAttempts: 5, BaseDelay: time.Millisecond}
	_, err := Retry(ctx, b, func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("timeout"), 504)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

func TestBackoff_DelayCapped(t *testing.T) {
	b := Backoff{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
		Multiplier:  2.0,
	}.withDefaults()

	if d := b.delay(0); d != time.Second {
		t.Errorf("delay(0) = %v, want 1s", d)
	}
	if d := b.delay(5); d != 4*time.Second {
		t.Errorf("delay(5) = %v, want capped 4s", d)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil should not be transient")
	}
	if !IsTransient(NewTransientError(errors.New("x"), 502)) {
		t.Error("TransientError should be transient")
	}
	if !IsTransient(errors.New("read tcp: i/o timeout")) {
		t.Error("i/o timeout pattern should be transient")
	}
	if IsTransient(errors.New("schema mismatch")) {
		t.Error("parse errors must not be transient")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("status %d should be transient", code)
		}
	}
	for _, code := range []int{200, 400, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("status %d should not be transient", code)
		}
	}
}
