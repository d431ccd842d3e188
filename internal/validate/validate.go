// Package validate checks request parameters against the model registry and
// discovery cache before a provider is called, and applies per-provider
// workarounds to the result.
package validate

import (
	"log/slog"

	"github.com/emesal/ratatoskr/internal/cache"
	"github.com/emesal/ratatoskr/internal/registry"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Classification is the outcome of checking a single parameter against a
// (provider, model) target's declared availability.
type Classification int

const (
	Accepted Classification = iota
	OutOfRange
	ReadOnlyMismatch
	Unsupported
	Unknown
)

// String names the classification for log attributes and diagnostics.
func (c Classification) String() string {
	switch c {
	case Accepted:
		return "accepted"
	case OutOfRange:
		return "out_of_range"
	case ReadOnlyMismatch:
		return "read_only_mismatch"
	case Unsupported:
		return "unsupported"
	case Unknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Finding pairs a parameter with its classification and, for non-accepted
// ones, a human-readable reason.
type Finding struct {
	Parameter      ratatoskr.ParameterName
	Classification Classification
	Reason         string
}

// Validator enforces a [ratatoskr.ValidationPolicy] for parameters set on a
// request, consulting the model registry for declared availability and the
// discovery cache for runtime-learned rejections.
type Validator struct {
	registry  *registry.Registry
	discovery *cache.DiscoveryCache
	policy    ratatoskr.ValidationPolicy
	log       *slog.Logger
}

// New builds a Validator over registry and an optional discovery cache (nil
// disables the discovery-cache consultation step for parameters the
// registry doesn't know about).
func New(reg *registry.Registry, disc *cache.DiscoveryCache, policy ratatoskr.ValidationPolicy, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{registry: reg, discovery: disc, policy: policy, log: log}
}

// Classify checks a single parameter value against (providerID, modelID)'s
// declared availability, falling back to the discovery cache when the
// registry has no opinion.
func (v *Validator) Classify(providerID, modelID string, p ratatoskr.ParameterName, value any) Finding {
	meta, ok := v.registry.Lookup(modelID)
	if ok {
		if avail, known := meta.Parameters[p]; known {
			return classifyAgainstAvailability(p, avail, value)
		}
	}

	if v.discovery != nil && v.discovery.Has(providerID, modelID, p) {
		return Finding{Parameter: p, Classification: Unsupported, Reason: "learned unsupported at runtime"}
	}

	return Finding{Parameter: p, Classification: Unknown, Reason: "no declared or learned availability"}
}

func classifyAgainstAvailability(p ratatoskr.ParameterName, avail ratatoskr.ParameterAvailability, value any) Finding {
	switch avail.Kind {
	case ratatoskr.ParameterUnsupported:
		return Finding{Parameter: p, Classification: Unsupported, Reason: "provider declares this parameter unsupported"}
	case ratatoskr.ParameterReadOnly:
		if !valuesEqual(avail.Value, value) {
			return Finding{Parameter: p, Classification: ReadOnlyMismatch, Reason: "only the provider's fixed value is accepted"}
		}
		return Finding{Parameter: p, Classification: Accepted}
	case ratatoskr.ParameterOpaque:
		return Finding{Parameter: p, Classification: Accepted}
	case ratatoskr.ParameterMutable:
		if avail.HasRange && (avail.Min != 0 || avail.Max != 0) {
			if n, ok := asFloat(value); ok && (n < avail.Min || n > avail.Max) {
				return Finding{Parameter: p, Classification: OutOfRange, Reason: "value outside the provider's accepted range"}
			}
		}
		return Finding{Parameter: p, Classification: Accepted}
	default:
		return Finding{Parameter: p, Classification: Unknown}
	}
}

func valuesEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Validate checks every explicitly-set parameter in set against
// (providerID, modelID) and applies v's policy:
//   - Error: the first non-accepted parameter makes Validate return an
//     ErrUnsupportedParameter; the dispatcher then skips this provider and
//     tries the next entry in the chain.
//   - Warn: non-accepted parameters are logged and the request proceeds.
//   - Ignore: the request proceeds silently.
//
// Unknown parameters (no registry declaration and no discovery record) are
// treated as accepted under Warn and Ignore — the provider is the final
// authority — but as a failure under Error.
func (v *Validator) Validate(providerID, modelID string, set map[ratatoskr.ParameterName]any) error {
	for p, value := range set {
		f := v.Classify(providerID, modelID, p, value)
		if f.Classification == Accepted {
			continue
		}

		switch v.policy {
		case ratatoskr.ValidationError:
			return ratatoskr.NewUnsupportedParameterError(p, f.Reason)
		case ratatoskr.ValidationWarn:
			v.log.Warn("parameter validation warning",
				"provider", providerID,
				"model", modelID,
				"parameter", p.String(),
				"classification", f.Classification.String(),
				"reason", f.Reason,
			)
		case ratatoskr.ValidationIgnore:
			// proceed silently
		}
	}
	return nil
}
