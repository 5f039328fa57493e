package reaper

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stalesweep/stalesweep/internal/tracker"
)

// Retry configuration. Rate-limit waits longer than maxRateLimitWait are
// not worth sleeping through inside a scheduler-bounded run; the resource
// is recorded as failed and the next run picks it up.
const (
	retryInitialInterval = time.Second
	retryMaxElapsed      = 2 * time.Minute
	maxRateLimitWait     = 5 * time.Minute
)

func newMutationBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

// withRetry executes one tracker operation with the error-taxonomy retry
// policy: rate limits wait out the server hint, transient failures and
// per-call timeouts back off exponentially up to a ceiling, everything
// else is permanent.
func (e *Engine) withRetry(ctx context.Context, op func(context.Context) error) error {
	bo := e.newBackoff()
	return backoff.Retry(func() error {
		opCtx := ctx
		var cancel context.CancelFunc
		if e.opts.OperationTimeout > 0 {
			opCtx, cancel = context.WithTimeout(ctx, e.opts.OperationTimeout)
			defer cancel()
		}

		err := op(opCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		if wait, ok := tracker.IsRateLimited(err); ok {
			if wait > maxRateLimitWait {
				return backoff.Permanent(err)
			}
			if wait > 0 {
				select {
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				case <-time.After(wait):
				}
			}
			return err // Retryable - backoff will retry
		}

		if tracker.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
			return err // Retryable - backoff will retry
		}

		return backoff.Permanent(err) // Non-retryable - stop immediately
	}, backoff.WithContext(bo, ctx))
}
