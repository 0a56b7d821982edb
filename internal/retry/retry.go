// Package retry provides a small retry-with-backoff helper for upstream
// calls that warrant it.
package retry

import (
	"context"
	"fmt"
	"time"
)

// DelayFunc maps a 1-based failed attempt number to the delay before the
// next attempt.
type DelayFunc func(attempt int) time.Duration

// Linear returns a delay growing by step per attempt: step, 2*step, ...
func Linear(step time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// Fixed returns the same delay for every attempt.
func Fixed(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

// Do runs op up to attempts times, sleeping delay(attempt) between failures.
// The first success wins; the last error is returned when all attempts fail.
// Context cancellation interrupts the wait.
func Do[T any](ctx context.Context, attempts int, delay DelayFunc, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(delay(attempt)):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
