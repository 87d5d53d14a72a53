package humanize

import (
	"context"
	"time"
)

// Sleeper abstracts coarse waits so tests can skip them entirely.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper waits on a real timer, returning early on context cancel.
type TimerSleeper struct{}

// Sleep blocks for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
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

// NopSleeper never waits. Used by tests.
type NopSleeper struct{}

// Sleep returns immediately, reporting only context cancellation.
func (NopSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
