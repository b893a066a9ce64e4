package submit

import (
	"context"
	"time"

	"github.com/solfleet/pumpfleet/pkg/types"
)

// PollUntil runs fn at the given interval until it reports done, the
// deadline passes, or the context is cancelled. It is the single
// wait-for-observable-state primitive shared by bundle status,
// transaction confirmation, and lookup-table readability checks.
func PollUntil(ctx context.Context, interval, deadline time.Duration, fn func(ctx context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return types.ErrConfirmationTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
