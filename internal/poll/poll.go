// Package poll provides a bounded retry loop for callers that wait on a
// remote job to finish.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when the attempt budget runs out before the
// polled operation reports completion.
var ErrExhausted = errors.New("poll: attempt budget exhausted")

// Fn is one poll attempt. It returns done=true to stop polling successfully,
// or a non-nil error to abort immediately.
type Fn func(ctx context.Context) (done bool, err error)

// Until invokes fn up to maxAttempts times, sleeping interval between
// attempts. It returns ErrExhausted if fn never reports done, the fn error
// if one occurs, or the context error if the context ends first.
func Until(ctx context.Context, maxAttempts int, interval time.Duration, fn Fn) error {
	if maxAttempts <= 0 {
		return ErrExhausted
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	return ErrExhausted
}
