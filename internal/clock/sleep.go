// Package clock provides waiting and retry helpers.
package clock

import (
	"context"
	"time"
)

// Sleeper waits for d and returns early with ctx.Err() when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext is the timer-backed Sleeper.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
