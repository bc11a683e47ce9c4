package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimeout is returned when Poll exhausts its overall deadline.
var ErrPollTimeout = errors.New("poll deadline exceeded")

// PollConfig bounds a status-polling loop.
type PollConfig struct {
	// Interval is the backoff schedule between checks.
	Interval Backoff
	// Timeout is the overall limit across all checks.
	Timeout time.Duration
	// OnWait is called before each wait.
	OnWait func(check int, wait time.Duration)
}

// Poll calls check until it reports done or fails. Errors from check stop the
// loop immediately. The overall Timeout yields ErrPollTimeout; cancellation of
// the parent ctx yields ctx.Err().
func Poll[T any](ctx context.Context, cfg PollConfig, check func(ctx context.Context) (T, bool, error)) (T, error) {
	var zero T
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	deadline := time.Now().Add(cfg.Timeout)

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, done, err := check(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return v, nil
		}

		wait := cfg.Interval.Delay(n)
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, ErrPollTimeout
		}
		if wait > remaining {
			wait = remaining
		}
		if cfg.OnWait != nil {
			cfg.OnWait(n, wait)
		}
		if err := Sleep(ctx, wait); err != nil {
			return zero, err
		}
		if !time.Now().Before(deadline) {
			return zero, ErrPollTimeout
		}
	}
}
