package retry

import (
	"context"
	"time"
)

// Linear is a backoff schedule where attempt i (1-based) is followed by a
// wait of i * Delay before the next try.
type Linear struct {
	Attempts int
	Delay    time.Duration
}

// Do runs fn until it succeeds, the attempt budget is spent, or ctx is done.
// The last error wins; ctx cancellation during a wait surfaces as ctx.Err().
func (l Linear) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= l.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if attempt == l.Attempts {
			break
		}

		wait := time.Duration(attempt) * l.Delay
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
