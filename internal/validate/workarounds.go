package validate

import "github.com/emesal/ratatoskr/pkg/ratatoskr"

// Workaround is a pure mapping from the canonical [ratatoskr.ChatOptions]
// to a provider-ready copy, applied after validation succeeds. It returns a
// (possibly unmodified) copy of opts, or an error when the target has no
// equivalent for a parameter that must not be silently dropped.
type Workaround func(opts ratatoskr.ChatOptions) (ratatoskr.ChatOptions, error)

// Workarounds chains zero or more provider-specific option transformations.
type Workarounds struct {
	steps []Workaround
}

// NewWorkarounds builds a chain applying steps in order.
func NewWorkarounds(steps ...Workaround) *Workarounds {
	return &Workarounds{steps: steps}
}

// Apply runs every step over opts, short-circuiting on the first error.
func (w *Workarounds) Apply(opts ratatoskr.ChatOptions) (ratatoskr.ChatOptions, error) {
	for _, step := range w.steps {
		var err error
		opts, err = step(opts)
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// ParallelToolCallsViaExtraBody lifts ParallelToolCalls into
// RawProviderOptions under key, for providers that accept it only as a
// pass-through extra-body field rather than a first-class option.
func ParallelToolCallsViaExtraBody(key string) Workaround {
	return func(opts ratatoskr.ChatOptions) (ratatoskr.ChatOptions, error) {
		if opts.ParallelToolCalls == nil {
			return opts, nil
		}
		opts = cloneChatOptions(opts)
		opts.RawProviderOptions[key] = *opts.ParallelToolCalls
		opts.ParallelToolCalls = nil
		return opts, nil
	}
}

// RejectParallelToolCalls fails the request when ParallelToolCalls is set
// and the target provider has no equivalent at all, rather than silently
// dropping caller intent.
func RejectParallelToolCalls() Workaround {
	return func(opts ratatoskr.ChatOptions) (ratatoskr.ChatOptions, error) {
		if opts.ParallelToolCalls == nil {
			return opts, nil
		}
		return opts, ratatoskr.NewUnsupportedParameterError(
			ratatoskr.ParamParallelToolCalls, "provider has no parallel tool-call control")
	}
}

// CachePromptViaExtraBody lifts CachePrompt into RawProviderOptions under
// key, the same extra-body pattern as [ParallelToolCallsViaExtraBody].
func CachePromptViaExtraBody(key string) Workaround {
	return func(opts ratatoskr.ChatOptions) (ratatoskr.ChatOptions, error) {
		if opts.CachePrompt == nil {
			return opts, nil
		}
		opts = cloneChatOptions(opts)
		opts.RawProviderOptions[key] = *opts.CachePrompt
		opts.CachePrompt = nil
		return opts, nil
	}
}

func cloneChatOptions(opts ratatoskr.ChatOptions) ratatoskr.ChatOptions {
	clone := opts
	clone.RawProviderOptions = make(map[string]any, len(opts.RawProviderOptions)+1)
	for k, v := range opts.RawProviderOptions {
		clone.RawProviderOptions[k] = v
	}
	return clone
}
