package resilience

import (
	"errors"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Disposition is the outcome of classifying an error for retry/fallback
// purposes. It is total over [ratatoskr.ErrorCode] and must never vary by
// call site (see [Classify]).
type Disposition int

const (
	// Permanent errors are surfaced to the caller immediately; never retried,
	// never trigger fallback.
	Permanent Disposition = iota
	// Transient errors are retried by the Retry decorator within the same
	// provider; if retries are exhausted they become a permanent failure of
	// that attempt (the dispatcher does not fall back on them).
	Transient
	// Fallback errors are never retried at the same provider; the dispatcher
	// consumes them to advance to the next chain entry.
	Fallback
)

// transientStatuses is the canonical set of HTTP-ish statuses classified as
// transient for ErrAPI. Implementations may extend the transient set
// per-provider by translating additional statuses to ErrRateLimited or
// ErrNetwork before they reach Classify.
var transientStatuses = map[int]bool{
	408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
}

// Classify is the sole authority mapping an error to a retry/fallback
// [Disposition]. It is total (every ErrorCode has a fixed answer) and
// monotone (the same code always classifies the same way, regardless of
// call site). A non-*ratatoskr.Error is treated as Permanent: providers that
// do not conform to the error-taxonomy contract get no special handling.
func Classify(err error) Disposition {
	if err == nil {
		return Permanent
	}
	var e *ratatoskr.Error
	if !errors.As(err, &e) {
		return Permanent
	}

	switch e.Code {
	case ratatoskr.ErrModelNotAvailable:
		return Fallback
	case ratatoskr.ErrUnsupportedParameter:
		// Every occurrence is fallback-worthy: the dispatcher records it in
		// the discovery cache and advances the chain, whether or not the
		// target has rejected this parameter before.
		return Fallback
	case ratatoskr.ErrNetwork, ratatoskr.ErrRateLimited, ratatoskr.ErrStream:
		return Transient
	case ratatoskr.ErrAPI:
		if transientStatuses[e.Status] {
			return Transient
		}
		return Permanent
	case ratatoskr.ErrAuthFailed,
		ratatoskr.ErrInvalidInput,
		ratatoskr.ErrModelNotFound,
		ratatoskr.ErrUnsupported,
		ratatoskr.ErrContentFiltered,
		ratatoskr.ErrContextLengthExceeded,
		ratatoskr.ErrConfiguration,
		ratatoskr.ErrJSON,
		ratatoskr.ErrNotImplemented,
		ratatoskr.ErrEmptyResponse,
		ratatoskr.ErrNoProvider:
		return Permanent
	default:
		return Permanent
	}
}
