package waitutil

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Poll when the condition did not hold before
// the configured deadline.
var ErrTimeout = errors.New("condition not met before deadline")

type Options struct {
	// how long to sleep between condition checks
	Interval time.Duration
	// total time to keep polling, zero means poll forever
	Timeout time.Duration
}

// Poll evaluates cond every Interval until it reports true, the timeout
// elapses or ctx is cancelled. The condition is evaluated once immediately
// before any sleeping. A non-nil error from cond aborts polling.
func Poll(ctx context.Context, opts Options, cond func(ctx context.Context) (bool, error)) error {
	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if !deadline.IsZero() && !time.Now().Add(opts.Interval).Before(deadline) {
			return ErrTimeout
		}

		timer := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
