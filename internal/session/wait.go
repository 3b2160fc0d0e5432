package session

import (
	"context"
	"fmt"
	"time"

	"reconciler/internal/services"
)

// Condition reports whether the awaited state has been reached. A non-nil
// error aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// WaitUntil polls cond every interval until it reports done, it returns an
// error, ctx ends, or timeout elapses. The condition is checked once before
// the first sleep. Timeouts are tagged with services.ErrTimeout.
func WaitUntil(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if cond == nil {
		return services.Wrap(services.ErrValidation, "session", "wait", "condition required", nil)
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if waitCtx.Err() != nil {
			return expired(ctx, waitCtx, timeout)
		}
		done, err := cond(waitCtx)
		if err != nil {
			// The deadline interrupted cond mid-call.
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return expired(ctx, waitCtx, timeout)
			}
			return err
		}
		if done {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return expired(ctx, waitCtx, timeout)
		case <-ticker.C:
		}
	}
}

func expired(ctx, waitCtx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return services.Wrap(services.ErrTimeout, "session", "wait", fmt.Sprintf("condition not met within %s", timeout), waitCtx.Err())
}
