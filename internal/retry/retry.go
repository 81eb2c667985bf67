// Package retry provides a bounded fixed-delay retry helper for remote calls.
package retry

import (
	"context"
	"time"

	"github.com/tuannvm/youtrack-analyzer/internal/logging"
)

const (
	// DefaultMaxAttempts is the total number of tries, including the first.
	DefaultMaxAttempts = 3
	// DefaultDelay is the fixed pause between consecutive attempts.
	DefaultDelay = time.Second
)

// Do runs op up to maxAttempts times, pausing delay between attempts. Every
// error is retried the same way; the delay is fixed, with no backoff or
// jitter. On exhaustion the error of the final attempt is returned unchanged.
func Do[T any](ctx context.Context, maxAttempts int, delay time.Duration, op func(context.Context) (T, error)) (T, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			logging.Warnf("attempt %d/%d failed, retrying in %s: %v", attempt, maxAttempts, delay, err)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
