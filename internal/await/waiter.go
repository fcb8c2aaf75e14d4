// internal/await/waiter.go
// Bounded waiting primitives. A wait either resolves because its predicate
// became true, fails fast because the predicate itself errored, or fails
// with a timeout error carrying the bound. All timers are released on every
// exit path.
package await

import (
	"context"
	"fmt"
	"time"

	"github.com/chatdrop/chatdrop/api/schemas"
)

// Predicate reports the current truth of a condition. It is evaluated
// synchronously, must not block, and must have no side effects on the wait
// mechanism itself. An error aborts the wait immediately.
type Predicate func() (bool, error)

// Condition polls pred until it reports true: once immediately, then on
// every interval tick, up to timeout. Timeout produces a KindTimeout error;
// a predicate error is returned as-is.
func Condition(ctx context.Context, pred Predicate, timeout, interval time.Duration) error {
	if timeout <= 0 {
		return schemas.NewError(schemas.KindValidation, "wait timeout must be > 0, got %v", timeout)
	}
	if interval <= 0 {
		return schemas.NewError(schemas.KindValidation, "poll interval must be > 0, got %v", interval)
	}

	ok, err := pred()
	if err != nil {
		return fmt.Errorf("wait predicate failed: %w", err)
	}
	if ok {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return schemas.NewError(schemas.KindTimeout, "condition not met within %v", timeout)
		case <-tick.C:
			ok, err := pred()
			if err != nil {
				return fmt.Errorf("wait predicate failed: %w", err)
			}
			if ok {
				return nil
			}
		}
	}
}
