package tracker

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitedError indicates the tracker rejected a request for quota
// reasons. RetryAfter is the server-suggested wait; zero means the caller
// should pick its own backoff.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
	}
	return "rate limited"
}

// TransientError wraps a network or 5xx failure that is worth retrying.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient tracker error: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// NotFoundError indicates the resource vanished, typically deleted or
// transferred while the sweep was in flight. Callers skip, not fail.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %s not found", e.ID)
}

// AuthError indicates the credential was rejected. Fatal for the run.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (status %d)", e.Status)
}

// IsRateLimited reports whether err is (or wraps) a RateLimitedError,
// returning the wait hint when it is.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
