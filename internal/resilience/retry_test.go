package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), "p", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetry_RetriesTransientThenSucceeds(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), "p", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return ratatoskr.NewAPIError(503, "unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetry_PermanentErrorShortCircuits(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})
	calls := 0
	wantErr := ratatoskr.NewError(ratatoskr.ErrAuthFailed, "bad key")
	err := r.Do(context.Background(), "p", func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry for permanent errors)", calls)
	}
}

func TestRetry_ExhaustsMaxAttempts(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), "p", func(ctx context.Context) error {
		calls++
		return ratatoskr.NewAPIError(500, "boom")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (max_attempts)", calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := r.Do(ctx, "p", func(ctx context.Context) error {
		calls++
		return ratatoskr.NewAPIError(503, "down")
	})
	if err == nil {
		t.Fatal("expected error from cancellation")
	}
	if calls > 2 {
		t.Fatalf("calls = %d, expected cancellation to cut retries short", calls)
	}
}

func TestRetry_DelayBounds(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
	r := NewRetry(cfg)
	for k := 1; k <= 4; k++ {
		base := float64(cfg.InitialDelay) * pow(cfg.BackoffMultiplier, k-1)
		if base > float64(cfg.MaxDelay) {
			base = float64(cfg.MaxDelay)
		}
		lo := time.Duration(base * (1 - cfg.JitterFraction))
		hi := time.Duration(base * (1 + cfg.JitterFraction))
		for i := 0; i < 20; i++ {
			d := r.Delay(k+1, nil)
			if d < lo || d > hi {
				t.Fatalf("attempt %d: delay %v out of bounds [%v, %v]", k, d, lo, hi)
			}
		}
	}
}

func TestRetry_UsesRetryAfterHint(t *testing.T) {
	r := NewRetry(RetryConfig{
		InitialDelay:      time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2,
		JitterFraction:    0,
		RespectRetryAfter: true,
	})
	err := ratatoskr.NewRateLimitedError(500 * time.Millisecond)
	d := r.Delay(2, err)
	if d < 500*time.Millisecond {
		t.Fatalf("delay = %v, want >= retry-after hint of 500ms", d)
	}
}

func TestRetry_IgnoresRetryAfterWhenDisabled(t *testing.T) {
	r := NewRetry(RetryConfig{
		InitialDelay:      time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2,
		JitterFraction:    0,
		RespectRetryAfter: false,
	})
	err := ratatoskr.NewRateLimitedError(500 * time.Millisecond)
	d := r.Delay(2, err)
	if d >= 500*time.Millisecond {
		t.Fatalf("delay = %v, want < retry-after hint since RespectRetryAfter is false", d)
	}
}
