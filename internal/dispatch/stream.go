package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/emesal/ratatoskr/internal/resilience"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// DefaultStreamBufferSize is the bounded channel capacity used for the
// consumer-facing stream unless a [Dispatcher] is configured otherwise.
const DefaultStreamBufferSize = 64

// DispatchStream establishes a stream against chain, applying retry and
// circuit-breaking only to establishment (the call that returns the
// provider's channel), matching the non-streaming fallback rules for
// ModelNotAvailable and UnsupportedParameter. Once a
// provider accepts, its channel is wrapped in a bounded buffered channel
// (capacity bufferSize) that the caller reads from; dropping the returned
// channel's only receiver causes the forwarding goroutine to stop at its
// next blocked send once the upstream closes or the context is canceled.
func DispatchStream[T ratatoskr.Identifiable, E any](
	ctx context.Context,
	deps *Deps,
	chain *Chain[T],
	req Request,
	bufferSize int,
	call func(ctx context.Context, provider T) (<-chan E, error),
) (<-chan E, error) {
	if req.ModelID == "" {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "model id is required")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultStreamBufferSize
	}

	entries := chain.snapshot()
	if len(entries) == 0 {
		return nil, ratatoskr.WrapError(ratatoskr.ErrNoProvider, errors.New("no provider registered for capability "+string(req.Capability)))
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
		var upstream <-chan E
		err := e.breaker.Execute(func() error {
			return deps.Retry.Do(ctx, providerID, func(ctx context.Context) error {
				var innerErr error
				upstream, innerErr = call(ctx, e.value)
				return innerErr
			})
		})

		if err == nil {
			e.latency.Record(time.Since(start))
			if deps.Metrics != nil {
				deps.Metrics.RecordRequest(ctx, string(req.Capability), providerID, "ok")
			}
			return bridgeStream(ctx, upstream, bufferSize), nil
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
			return nil, err
		}
		switch code {
		case ratatoskr.ErrModelNotAvailable:
			continue
		case ratatoskr.ErrUnsupportedParameter:
			recordUnsupported(ctx, deps, providerID, req.ModelID, err)
			continue
		default:
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, ratatoskr.WrapError(ratatoskr.ErrNoProvider, lastErr)
	}
	return nil, ratatoskr.ErrNoProviderErr
}

// bridgeStream forwards every event from upstream into a bounded channel,
// providing backpressure to the producer when the consumer falls behind. It
// closes the returned channel when upstream closes or ctx is canceled.
func bridgeStream[E any](ctx context.Context, upstream <-chan E, bufferSize int) <-chan E {
	out := make(chan E, bufferSize)
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-upstream:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
