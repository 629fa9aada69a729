package worker

import (
	"context"
	"errors"
	"time"
)

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// backoff is the wait before attempt i (i >= 1): 1s, 2s, 4s …
var backoff = func(i int) time.Duration {
	return time.Duration(1<<uint(i-1)) * time.Second
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// A Permanent error stops immediately.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		lastErr = err
		var p *permanentError
		if errors.As(err, &p) {
			return err
		}
	}
	return lastErr
}
