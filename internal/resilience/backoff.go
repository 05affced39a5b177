// Package resilience provides the retry and backoff policy used for all
// external provider calls.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff is an explicit retry policy: bounded attempts, exponential delay
// with jitter. The Sleep hook exists so tests can substitute a recording
// no-op instead of real timers.
type Backoff struct {
	// MaxAttempts is the total number of attempts including the first.
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay. Default: 15s.
	MaxDelay time.Duration

	// Multiplier scales the delay after each attempt. Default: 2.0.
	Multiplier float64

	// Jitter adds random jitter as a fraction of the computed delay
	// (0 = none, 0.5 = ±50%). Default: 0.25.
	Jitter float64

	// Retryable overrides the default transient-error check when non-nil.
	Retryable func(err error) bool

	// Sleep waits out a retry delay. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each retry with the attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultBackoff returns the retry policy used for provider API calls.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    15 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.25,
	}
}

func (b Backoff) withDefaults() Backoff {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 3
	}
	if b.BaseDelay <= 0 {
		b.BaseDelay = 500 * time.Millisecond
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = 15 * time.Second
	}
	if b.Multiplier <= 0 {
		b.Multiplier = 2.0
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	if b.Retryable == nil {
		b.Retryable = IsTransient
	}
	if b.Sleep == nil {
		b.Sleep = sleepTimer
	}
	return b
}

// delay computes the backoff before retry number attempt (0-based).
func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.BaseDelay) * math.Pow(b.Multiplier, float64(attempt))
	if d > float64(b.MaxDelay) {
		d = float64(b.MaxDelay)
	}
	if b.Jitter > 0 {
		spread := d * b.Jitter
		d += (rand.Float64()*2 - 1) * spread
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func sleepTimer(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry executes fn under the policy, retrying only transient errors.
// Context cancellation stops retries immediately and returns the last error.
func Retry[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	b = b.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < b.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !b.Retryable(lastErr) || attempt >= b.MaxAttempts-1 {
			break
		}

		if b.OnRetry != nil {
			b.OnRetry(attempt+1, lastErr)
		}
		if err := b.Sleep(ctx, b.delay(attempt)); err != nil {
			break
		}
	}
	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(source, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying fetch",
			zap.String("source", source),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
