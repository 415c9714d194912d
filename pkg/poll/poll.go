// Package poll provides a fixed-interval condition waiter with an overall
// timeout. It drives "wait until the platform reports X" steps in the
// deployment and rollback flows.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy bounds a wait: how long to wait in total, how often to check,
// and a human-readable label used in progress and error messages.
type Policy struct {
	// Timeout bounds the total wall-clock time spent waiting.
	Timeout time.Duration `json:"timeout"`

	// Interval is the spacing between condition evaluations. Must be
	// positive and no larger than Timeout.
	Interval time.Duration `json:"interval"`

	// Label describes what is being waited for.
	Label string `json:"label"`
}

// Validate checks that the policy is well formed.
func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", p.Timeout)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", p.Interval)
	}
	if p.Interval > p.Timeout {
		return fmt.Errorf("poll interval %s exceeds timeout %s", p.Interval, p.Timeout)
	}
	return nil
}

// TimeoutError is returned when the condition does not become true within
// the policy's timeout. It carries the wait label for diagnostics.
type TimeoutError struct {
	// Label is the description of the condition that was waited for.
	Label string

	// Timeout is the configured overall deadline that elapsed.
	Timeout time.Duration

	// Evaluations is the number of times the condition was checked.
	Evaluations int
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s (%d checks)", e.Timeout, e.Label, e.Evaluations)
}

// IsTimeout reports whether err is a poll timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Condition is evaluated once per interval. It should be idempotent; a
// returned error aborts the wait immediately and is propagated to the
// caller unchanged. Transient read failures are not retried here; compose
// with the retry executor if the check itself is flaky.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond at the policy's interval until it returns true,
// returns an error, or the overall timeout elapses. Success is returned
// the moment the condition holds; a lapsed deadline yields *TimeoutError.
func Until(ctx context.Context, p Policy, cond Condition) error {
	if err := p.Validate(); err != nil {
		return err
	}

	start := time.Now()
	evaluations := 0
	for {
		evaluations++
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		// Give up only once the full timeout has elapsed; the condition
		// is never evaluated more than timeout/interval (+1) times.
		if time.Since(start) >= p.Timeout {
			return &TimeoutError{Label: p.Label, Timeout: p.Timeout, Evaluations: evaluations}
		}

		log.Debug().
			Str("waiting_for", p.Label).
			Dur("interval", p.Interval).
			Dur("elapsed", time.Since(start)).
			Msg("condition not met yet")

		select {
		case <-time.After(p.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
