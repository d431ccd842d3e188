// Package registry implements a three-layer model registry: a compiled-in
// seed of well-known models, an optional cached remote snapshot refreshed
// periodically, and an ephemeral in-memory layer populated from live
// provider responses. [Registry.Lookup] merges all three with live > cached
// > seed precedence.
package registry

import "github.com/emesal/ratatoskr/pkg/ratatoskr"

// Seed returns the compiled-in snapshot of well-known models. It ships with
// the binary and is always available, even with no network access and no
// remote snapshot configured — the gateway degrades to seed-only metadata
// rather than refusing to dispatch.
func Seed() map[string]ratatoskr.ModelMetadata {
	mutable := func(min, max float64) ratatoskr.ParameterAvailability {
		return ratatoskr.ParameterAvailability{Kind: ratatoskr.ParameterMutable, Min: min, Max: max, HasRange: true}
	}
	opaque := ratatoskr.ParameterAvailability{Kind: ratatoskr.ParameterOpaque}

	chatCaps := []ratatoskr.Capability{ratatoskr.CapabilityChat, ratatoskr.CapabilityChatStream}

	return map[string]ratatoskr.ModelMetadata{
		"gpt-4o": {
			ID:              "gpt-4o",
			ProviderID:      "openai",
			Capabilities:    chatCaps,
			ContextWindow:   128000,
			MaxOutputTokens: 16384,
			Pricing:         ratatoskr.Pricing{InputPerToken: 2.5e-6, OutputPerToken: 10e-6},
			Parameters: map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability{
				ratatoskr.ParamTemperature:   mutable(0, 2),
				ratatoskr.ParamTopP:          mutable(0, 1),
				ratatoskr.ParamMaxTokens:     mutable(1, 16384),
				ratatoskr.ParamSeed:          opaque,
				ratatoskr.ParamToolChoice:    opaque,
				ratatoskr.ParamResponseFormat: opaque,
			},
		},
		"gpt-4o-mini": {
			ID:              "gpt-4o-mini",
			ProviderID:      "openai",
			Capabilities:    chatCaps,
			ContextWindow:   128000,
			MaxOutputTokens: 16384,
			Pricing:         ratatoskr.Pricing{InputPerToken: 0.15e-6, OutputPerToken: 0.6e-6},
			Parameters: map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability{
				ratatoskr.ParamTemperature: mutable(0, 2),
				ratatoskr.ParamTopP:        mutable(0, 1),
				ratatoskr.ParamMaxTokens:   mutable(1, 16384),
			},
		},
		"claude-sonnet-4-5": {
			ID:              "claude-sonnet-4-5",
			ProviderID:      "anthropic",
			Capabilities:    chatCaps,
			ContextWindow:   200000,
			MaxOutputTokens: 8192,
			Pricing:         ratatoskr.Pricing{InputPerToken: 3e-6, OutputPerToken: 15e-6},
			Parameters: map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability{
				ratatoskr.ParamTemperature: mutable(0, 1),
				ratatoskr.ParamTopP:        mutable(0, 1),
				ratatoskr.ParamTopK:        mutable(0, 500),
				ratatoskr.ParamMaxTokens:   mutable(1, 8192),
				// Claude has no seed/reproducibility knob; callers that set it
				// get an unsupported-parameter rejection, which the dispatcher
				// then bakes into the discovery cache.
				ratatoskr.ParamSeed: {Kind: ratatoskr.ParameterUnsupported},
			},
		},
		"gemini-1.5-pro": {
			ID:              "gemini-1.5-pro",
			ProviderID:      "gemini",
			Capabilities:    chatCaps,
			ContextWindow:   2000000,
			MaxOutputTokens: 8192,
			Pricing:         ratatoskr.Pricing{InputPerToken: 1.25e-6, OutputPerToken: 5e-6},
			Parameters: map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability{
				ratatoskr.ParamTemperature: mutable(0, 2),
				ratatoskr.ParamTopP:        mutable(0, 1),
				ratatoskr.ParamTopK:        mutable(1, 40),
			},
		},
		"llama3.1": {
			ID:              "llama3.1",
			ProviderID:      "ollama",
			Capabilities:    append(append([]ratatoskr.Capability{}, chatCaps...), ratatoskr.CapabilityGenerate, ratatoskr.CapabilityGenerateStream),
			ContextWindow:   128000,
			MaxOutputTokens: 4096,
			Parameters: map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability{
				ratatoskr.ParamTemperature: mutable(0, 2),
				ratatoskr.ParamTopP:        mutable(0, 1),
				ratatoskr.ParamTopK:        mutable(1, 100),
				ratatoskr.ParamSeed:        mutable(0, 0),
			},
		},
		"text-embedding-3-small": {
			ID:               "text-embedding-3-small",
			ProviderID:       "openai",
			Capabilities:     []ratatoskr.Capability{ratatoskr.CapabilityEmbed, ratatoskr.CapabilityEmbedBatch},
			ContextWindow:    8191,
			OutputDimensions: 1536,
			Pricing:          ratatoskr.Pricing{InputPerToken: 0.02e-6},
		},
		"nomic-embed-text": {
			ID:               "nomic-embed-text",
			ProviderID:       "ollama",
			Capabilities:     []ratatoskr.Capability{ratatoskr.CapabilityEmbed, ratatoskr.CapabilityEmbedBatch},
			ContextWindow:    8192,
			OutputDimensions: 768,
		},
	}
}
