// Package retry provides exponential backoff for operations against external
// stores, such as waiting for the database while the server starts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Strategy configures exponential backoff.
//
// The delay before retry n follows: delay = min(BaseDelay * ExponentialBase^(n-1), MaxDelay)
//
// Example with defaults (500ms base, 2.0 exponential, 15s max):
//
//	Retry 1: 500ms
//	Retry 2: 1s
//	Retry 3: 2s
//	Retry 4: 4s
//	Retry 5: 8s
type Strategy struct {
	MaxAttempts     int           // Total attempts including the first one
	BaseDelay       time.Duration // Delay before the first retry
	MaxDelay        time.Duration // Cap on a single delay
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the strategy the server uses to wait for its store:
// 8 attempts, 500ms→15s exponential backoff.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     8,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        15 * time.Second,
		ExponentialBase: 2.0,
	}
}

// Delay returns how long to wait before retry number n (1-based).
func (s Strategy) Delay(n int) time.Duration {
	if n <= 1 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(n-1))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// IsRetryable reports whether another attempt is allowed after attemptCount attempts.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// Schedule returns a human-readable description of the retry delays.
//
// Example output:
//
//	Retry Schedule:
//	  Retry 1: after 500ms
//	  Retry 2: after 1s
func (s Strategy) Schedule() string {
	var b strings.Builder
	b.WriteString("Retry Schedule:\n")
	for i := 1; i < s.MaxAttempts; i++ {
		fmt.Fprintf(&b, "  Retry %d: after %v\n", i, s.Delay(i))
	}
	return b.String()
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, returns a Permanent error, the attempts run
// out or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, s Strategy, fn func(ctx context.Context) error) error {
	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= attempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		timer := time.NewTimer(s.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
	}
}
