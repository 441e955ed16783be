// Package retry provides bounded exponential backoff for transient
// dependency failures.
package retry

import (
	"context"
	"time"

	"medrag/internal/errdefs"
)

// sleepFunc is the wait function used between attempts (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op up to attempts times, doubling the backoff after each
// transient failure. Non-transient errors and successes return
// immediately. The last error is returned when retries exhaust.
func Do(ctx context.Context, attempts int, base time.Duration, op func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if base <= 0 {
		base = time.Second
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = op(ctx)
		if err == nil || !errdefs.IsTransient(err) {
			return err
		}
		if attempt < attempts-1 {
			backoff := base * time.Duration(1<<uint(attempt))
			if sleepErr := sleepFunc(ctx, backoff); sleepErr != nil {
				return err
			}
		}
	}
	return err
}
