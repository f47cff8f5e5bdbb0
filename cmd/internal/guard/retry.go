package guard

import (
	"context"
	"time"
)

// RetryWithBackoff calls fn up to attempts times, sleeping base, 2*base,
// 4*base, ... between attempts with the delay capped at maxDelay. It returns
// nil on the first success, the last error once attempts are exhausted, or
// ctx.Err() if the context ends while waiting.
//
// Retries live here, at the call site, not inside the breaker: the breaker
// counts each Exec as one attempt regardless of how the caller retries.
func RetryWithBackoff(ctx context.Context, attempts int, base, maxDelay time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	var lastErr error
	delay := base
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return lastErr
}
