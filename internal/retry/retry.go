// Package retry provides a bounded retry wrapper for operations whose
// failure may be transient. Each retried unit must be idempotent or
// transactional with respect to partial application; the wrapper only
// re-invokes, it never compensates.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// BackoffFunc returns the delay to sleep before attempt k (k >= 2).
// Implementations must be non-decreasing in k.
type BackoffFunc func(attempt int) time.Duration

// Linear returns base×(k-1): the simple ramp used on request paths.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt-1)
	}
}

// Exponential returns base×2^(k-2): true exponential backoff used on
// the storage-atomicity path.
func Exponential(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base << (attempt - 2)
	}
}

// Config controls a retry loop. Retryable decides whether an error is
// worth another attempt; when nil every error is retried. Backoff
// defaults to Linear(BaseDelay).
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     BackoffFunc
	Retryable   func(error) bool
}

// Do invokes fn up to cfg.MaxAttempts times, sleeping cfg.Backoff(k)
// before attempt k. A nil error stops the loop immediately, as does an
// error rejected by cfg.Retryable or a cancelled context. On final
// failure the last error is logged with the label and attempt count and
// returned unchanged; Do never swallows it into a zero value silently.
func Do[T any](ctx context.Context, label string, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = Linear(cfg.BaseDelay)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, err
		}
	}
	slog.Error("operation failed after retries",
		"label", label,
		"attempts", attempts,
		"error", lastErr,
	)
	return zero, lastErr
}
