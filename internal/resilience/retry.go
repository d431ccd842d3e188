package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// RetryConfig configures a [Retry] decorator.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Must be >= 1. Default: 3.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt. Default: 100ms.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay before jitter is applied. Default: 10s.
	MaxDelay time.Duration

	// BackoffMultiplier scales the delay on each subsequent attempt. Must be
	// > 1. Default: 2.0.
	BackoffMultiplier float64

	// JitterFraction perturbs the computed delay by a uniform random factor
	// in [1-JitterFraction, 1+JitterFraction]. Must be in [0,1]. Default: 0.1.
	JitterFraction float64

	// RespectRetryAfter, when true, uses max(computed, hinted) whenever the
	// error carries a server-advised retry-after duration. Unlike the other
	// fields this has no zero-value fallback (bool zero value is
	// indistinguishable from an explicit false) — use [DefaultRetryConfig]
	// to get the gateway's documented default of true.
	RespectRetryAfter bool

	// OnRetry, when set, is called once per retry attempt (not the first
	// try) before the backoff delay, letting callers record a metric
	// without Retry depending on any particular instrumentation package.
	OnRetry func(providerID string, attempt int)
}

// DefaultRetryConfig returns the gateway's documented defaults: 3 attempts,
// 100ms initial delay, 2x multiplier, 10% jitter, retry-after respected.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
		RespectRetryAfter: true,
	}
}

// normalize fills in zero-value fields with the documented defaults so a
// caller-supplied RetryConfig{} behaves sensibly.
func (c RetryConfig) normalize() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		d.MaxAttempts = c.MaxAttempts
	}
	if c.InitialDelay > 0 {
		d.InitialDelay = c.InitialDelay
	}
	if c.MaxDelay > 0 {
		d.MaxDelay = c.MaxDelay
	}
	if c.BackoffMultiplier > 1 {
		d.BackoffMultiplier = c.BackoffMultiplier
	}
	if c.JitterFraction > 0 {
		d.JitterFraction = c.JitterFraction
	}
	d.RespectRetryAfter = c.RespectRetryAfter
	d.OnRetry = c.OnRetry
	return d
}

// Retry wraps any capability-invoking function with a bounded
// exponential-backoff-with-jitter decorator. Retry itself holds no state
// beyond its config, so a single instance may be shared across providers
// and calls.
type Retry struct {
	cfg RetryConfig
}

// NewRetry builds a [Retry] decorator. Zero-value fields in cfg are replaced
// with [DefaultRetryConfig] values.
func NewRetry(cfg RetryConfig) *Retry {
	return &Retry{cfg: cfg.normalize()}
}

// Do calls fn, retrying on transient errors per the configured policy. attempt
// is 1-indexed (1 is the first try) and is passed to Delay as is. Do never
// retries a non-*ratatoskr.Error — such errors are programmer
// bugs (a provider not conforming to the contract) and are returned
// immediately.
func (r *Retry) Do(ctx context.Context, providerID string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if r.cfg.OnRetry != nil {
				r.cfg.OnRetry(providerID, attempt)
			}
			delay := r.Delay(attempt, lastErr)
			slog.Debug("resilience: retrying after delay",
				"provider", providerID, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if Classify(err) != Transient {
			return err
		}
		slog.Debug("resilience: transient error, will retry",
			"provider", providerID, "attempt", attempt, "err", err)
	}
	return lastErr
}

// Delay computes the perturbed delay before attempt k (1-indexed, k>=1 means
// "before the k-th retry", i.e. called with attempt=2 for the delay before
// the second overall attempt). If err carries a retry-after hint and the
// config respects it, the result is max(computed, hinted).
func (r *Retry) Delay(attempt int, err error) time.Duration {
	k := attempt - 1
	if k < 1 {
		k = 1
	}
	base := float64(r.cfg.InitialDelay) * pow(r.cfg.BackoffMultiplier, k-1)
	if maxD := float64(r.cfg.MaxDelay); base > maxD {
		base = maxD
	}

	jitter := r.cfg.JitterFraction
	factor := 1.0
	if jitter > 0 {
		factor = 1 - jitter + rand.Float64()*2*jitter
	}
	delay := time.Duration(base * factor)

	if r.cfg.RespectRetryAfter {
		var rerr *ratatoskr.Error
		if errors.As(err, &rerr) && rerr.RetryAfter > delay {
			delay = rerr.RetryAfter
		}
	}
	return delay
}

// pow is a tiny integer-exponent power helper so the package does not need
// math.Pow's float edge-case handling for what is always a small positive
// integer exponent.
func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
