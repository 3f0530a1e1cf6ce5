// Package retryutil is the single retry primitive for the harvester.
// Anything that waits on the portal goes through a Budget so a stuck
// page can never hang a run forever.
package retryutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Budget bounds one retryable operation. Attempts is the total number
// of times the operation may run, Interval the pause between runs.
type Budget struct {
	Attempts uint
	Interval time.Duration
}

// Permanent marks err so Do stops retrying and returns it at once.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op up to b.Attempts times. recover, when non nil, runs after
// every failed attempt to put the world back into a retryable state
// (reload the page, clear cookies, plain sleep); a recovery failure
// aborts the budget. On exhaustion the returned error names the
// operation and the attempt count.
func (b Budget) Do(
	ctx context.Context,
	name string,
	op func(ctx context.Context) error,
	recover func(ctx context.Context) error,
) error {
	attempts := 0
	aborted := false

	wrapped := func() error {
		if err := ctx.Err(); err != nil {
			aborted = true
			return backoff.Permanent(err)
		}

		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			aborted = true
			return err
		}

		slog.Debug("attempt failed", "op", name, "attempt", attempts, "err", err)
		if recover != nil {
			if rerr := recover(ctx); rerr != nil {
				aborted = true
				return backoff.Permanent(fmt.Errorf("recovering %s: %w", name, rerr))
			}
		}
		return err
	}

	total := b.Attempts
	if total == 0 {
		total = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(b.Interval), uint64(total-1)),
		ctx,
	)

	err := backoff.Retry(wrapped, policy)
	if err == nil {
		return nil
	}
	if aborted {
		return err
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", name, attempts, err)
}
