// Package retry provides a blocking retry executor with deterministic
// exponential backoff. It is used by the deployment drivers and rollback
// coordinators for operations against external platforms that may fail
// transiently.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy controls how many times an operation is attempted and how the
// delay between attempts grows.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Must be at least 1.
	MaxAttempts int `json:"max_attempts"`

	// InitialDelay is the delay between the first failure and the second
	// attempt. Must be positive.
	InitialDelay time.Duration `json:"initial_delay"`

	// BackoffFactor multiplies the delay after every failed attempt.
	// Must be at least 1.0; a factor of 1.0 yields evenly spaced retries.
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultPolicy returns the policy used when the caller does not specify
// one: three attempts, three seconds initial delay, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  3 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Validate checks that the policy is well formed.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive, got %s", p.InitialDelay)
	}
	if p.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be at least 1.0, got %f", p.BackoffFactor)
	}
	return nil
}

// Delay returns the sleep duration after failed attempt number attempt
// (1-based). The delay grows multiplicatively and is floored at one second
// so a sleep can never be zero or negative. No jitter is applied; retries
// are evenly spaced by the formula alone.
func (p Policy) Delay(attempt int) time.Duration {
	seconds := p.InitialDelay.Seconds() * math.Pow(p.BackoffFactor, float64(attempt-1))
	rounded := math.Round(seconds)
	if rounded < 1 {
		rounded = 1
	}
	return time.Duration(rounded) * time.Second
}

// Do invokes op until it succeeds or the policy is exhausted. The error
// from the final attempt is returned unchanged so callers can inspect the
// original failure. A progress line identifying the attempt and the
// failure reason is logged before each sleep.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}

		if attempt >= p.MaxAttempts {
			return err
		}

		delay := p.Delay(attempt)
		log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("delay", delay).
			Err(err).
			Msg("operation failed, retrying after backoff")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DoValue is Do for operations that produce a value alongside an error.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
