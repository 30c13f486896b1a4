package marketplace

import (
	"context"
	"time"
)

// Backoff decides how long to wait before retry number attempt (1-based).
type Backoff interface {
	Wait(ctx context.Context, attempt int) error
}

// FixedBackoff waits the same interval before every retry.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Wait(ctx context.Context, _ int) error {
	if b.Interval <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(b.Interval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoWait retries immediately. Tests use it to exercise retry paths.
type NoWait struct{}

func (NoWait) Wait(ctx context.Context, _ int) error { return ctx.Err() }
