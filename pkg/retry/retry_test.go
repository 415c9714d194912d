package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayGrowsMultiplicatively(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialDelay: 3 * time.Second, BackoffFactor: 2.0}

	want := []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second, 24 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestDelayFlooredAtOneSecond(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, BackoffFactor: 1.0}
	for attempt := 1; attempt <= 3; attempt++ {
		if got := p.Delay(attempt); got < time.Second {
			t.Errorf("Delay(%d) = %s, want at least 1s", attempt, got)
		}
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("operation ran %d times, want 1", calls)
	}
}

func TestDoExhaustionPropagatesOriginalError(t *testing.T) {
	original := errors.New("connection refused")
	p := Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffFactor: 1.0}

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return original
	})
	if calls != 3 {
		t.Errorf("operation ran %d times, want exactly 3", calls)
	}
	if err != original {
		t.Errorf("err = %v, want the original error unwrapped and unmodified", err)
	}
}

func TestDoRecoversAfterFailures(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffFactor: 1.0}

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("operation ran %d times, want 2", calls)
	}
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Minute, BackoffFactor: 1.0}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("operation ran %d times, want 1 before cancellation", calls)
	}
}

func TestDoRejectsInvalidPolicy(t *testing.T) {
	tests := []struct {
		name string
		p    Policy
	}{
		{"zero attempts", Policy{MaxAttempts: 0, InitialDelay: time.Second, BackoffFactor: 2.0}},
		{"zero delay", Policy{MaxAttempts: 3, InitialDelay: 0, BackoffFactor: 2.0}},
		{"shrinking backoff", Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffFactor: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), tt.p, func(ctx context.Context) error {
				calls++
				return nil
			})
			if err == nil {
				t.Error("expected policy validation error")
			}
			if calls != 0 {
				t.Errorf("operation ran %d times before validation", calls)
			}
		})
	}
}

func TestDoValue(t *testing.T) {
	p := Policy{MaxAttempts: 2, InitialDelay: time.Second, BackoffFactor: 1.0}

	calls := 0
	got, err := DoValue(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "d-123", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "d-123" {
		t.Errorf("got %q, want d-123", got)
	}
}
