package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/emesal/ratatoskr/internal/cache"
	"github.com/emesal/ratatoskr/internal/resilience"
	"github.com/emesal/ratatoskr/internal/telemetry"
	"github.com/emesal/ratatoskr/internal/validate"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Deps bundles the shared infrastructure every capability dispatch consults:
// the response cache, discovery cache, validator, retry decorator, and
// metrics recorder. A single Deps is shared by every [Chain] in a
// [Dispatcher]. Metrics may be nil, in which case no metrics are recorded.
type Deps struct {
	ResponseCache *cache.ResponseCache
	Discovery     *cache.DiscoveryCache
	Validator     *validate.Validator
	Retry         *resilience.Retry
	Metrics       *telemetry.Metrics
}

// Request describes one dispatch attempt independent of the capability's
// concrete call signature.
type Request struct {
	Capability ratatoskr.Capability
	ModelID    string

	// CacheKey, when non-empty, makes this dispatch cache-aware: a hit
	// short-circuits the chain walk, and a successful call populates it.
	CacheKey string

	// Params are the explicitly-set request parameters, validated against
	// each candidate provider's declared availability before the call.
	Params map[ratatoskr.ParameterName]any
}

// Dispatch walks chain in its current order, applying the cache → validate
// → retry → fallback algorithm, and returns the first successful result.
// call performs the actual provider invocation; its error must be a
// *ratatoskr.Error for classification to behave correctly.
func Dispatch[T ratatoskr.Identifiable, R any](
	ctx context.Context,
	deps *Deps,
	chain *Chain[T],
	req Request,
	call func(ctx context.Context, provider T) (R, error),
) (R, error) {
	var zero R

	if req.ModelID == "" {
		return zero, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "model id is required")
	}

	if req.CacheKey != "" && deps.ResponseCache != nil {
		if v, ok := deps.ResponseCache.Get(req.CacheKey); ok {
			if result, ok := v.(R); ok {
				if deps.Metrics != nil {
					deps.Metrics.RecordCacheHit(ctx, string(req.Capability))
				}
				return result, nil
			}
		}
		if deps.Metrics != nil {
			deps.Metrics.RecordCacheMiss(ctx, string(req.Capability))
		}
	}

	entries := chain.snapshot()
	if len(entries) == 0 {
		return zero, ratatoskr.WrapError(ratatoskr.ErrNoProvider, errors.New("no provider registered for capability "+string(req.Capability)))
	}

	var lastErr error
	for i := range entries {
		e := &entries[i]
		providerID := e.value.ProviderID()

		if e.breaker.State() == resilience.StateOpen {
			continue
		}

		if deps.Validator != nil {
			if err := deps.Validator.Validate(providerID, req.ModelID, req.Params); err != nil {
				lastErr = err
				recordUnsupported(ctx, deps, providerID, req.ModelID, err)
				continue
			}
		}

		start := time.Now()
		var result R
		err := e.breaker.Execute(func() error {
			return deps.Retry.Do(ctx, providerID, func(ctx context.Context) error {
				var innerErr error
				result, innerErr = call(ctx, e.value)
				return innerErr
			})
		})

		if err == nil {
			e.latency.Record(time.Since(start))
			if deps.Metrics != nil {
				deps.Metrics.RecordRequest(ctx, string(req.Capability), providerID, "ok")
			}
			if req.CacheKey != "" && deps.ResponseCache != nil {
				deps.ResponseCache.Set(req.CacheKey, result)
			}
			return result, nil
		}

		if deps.Metrics != nil {
			deps.Metrics.RecordRequest(ctx, string(req.Capability), providerID, "error")
		}

		lastErr = err
		if errors.Is(err, resilience.ErrCircuitOpen) {
			continue
		}
		code, ok := ratatoskr.CodeOf(err)
		if !ok {
			return zero, err
		}
		switch code {
		case ratatoskr.ErrModelNotAvailable:
			continue
		case ratatoskr.ErrUnsupportedParameter:
			recordUnsupported(ctx, deps, providerID, req.ModelID, err)
			continue
		default:
			return zero, err
		}
	}

	if lastErr != nil {
		return zero, ratatoskr.WrapError(ratatoskr.ErrNoProvider, lastErr)
	}
	return zero, ratatoskr.ErrNoProviderErr
}

// recordUnsupported inserts a discovery record when err is an
// ErrUnsupportedParameter, so the validator classifies that parameter as
// Unsupported for the same target on later requests, and counts the
// discovery in telemetry when the record is new rather than a refresh.
func recordUnsupported(ctx context.Context, deps *Deps, providerID, modelID string, err error) {
	if deps.Discovery == nil {
		return
	}
	var perr *ratatoskr.Error
	if !errors.As(err, &perr) || perr.Code != ratatoskr.ErrUnsupportedParameter {
		return
	}
	first := deps.Discovery.Record(ratatoskr.DiscoveryRecord{
		ProviderID: providerID,
		ModelID:    modelID,
		Parameter:  perr.Parameter,
		Timestamp:  time.Now(),
		Reason:     perr.Reason,
	})
	if first && deps.Metrics != nil {
		deps.Metrics.RecordParameterDiscovery(ctx, providerID, perr.Parameter.String())
	}
}
