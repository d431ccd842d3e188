package ratatoskr

import "context"

// A provider is polymorphic over the capability set below: it implements
// whichever of these narrow interfaces its backend supports, and the
// dispatcher type-asserts for each one when building a capability's chain.
// Providers must be safe for concurrent use.
//
// Every method must return a *Error (via errors.As) on failure — never a
// bare error — so the dispatcher's classifier and fallback logic can act on
// it. A provider that recognizes an operation but declines to serve the
// requested model (wrong family, budget exhausted, not loaded) MUST return
// ErrModelNotAvailable and nothing else; that is the sole fallback signal
// for "try the next provider" besides ErrUnsupportedParameter.

// Identifiable is implemented by every provider so the dispatcher, discovery
// cache, and telemetry can key on a stable provider id.
type Identifiable interface {
	ProviderID() string
}

// ChatProvider implements non-streaming chat completion.
type ChatProvider interface {
	Identifiable
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (*ChatResponse, error)
}

// ChatStreamProvider implements streaming chat completion. The returned
// channel is closed by the provider when the stream ends (Done event or
// context cancellation); the provider owns the sender end exclusively.
type ChatStreamProvider interface {
	Identifiable
	ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (<-chan ChatEvent, error)
}

// GenerateProvider implements non-streaming single-prompt generation.
type GenerateProvider interface {
	Identifiable
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResponse, error)
}

// GenerateStreamProvider implements streaming single-prompt generation.
type GenerateStreamProvider interface {
	Identifiable
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan GenerateEvent, error)
}

// EmbedProvider implements single-text embedding.
type EmbedProvider interface {
	Identifiable
	Embed(ctx context.Context, text string, model string) (*Embedding, error)
}

// EmbedBatchProvider implements batched embedding.
type EmbedBatchProvider interface {
	Identifiable
	EmbedBatch(ctx context.Context, texts []string, model string) ([]Embedding, error)
}

// NliProvider implements natural-language-inference over a premise/hypothesis
// pair.
type NliProvider interface {
	Identifiable
	Nli(ctx context.Context, premise, hypothesis string, model string) (*NliResult, error)
}

// NliBatchProvider implements batched NLI.
type NliBatchProvider interface {
	Identifiable
	NliBatch(ctx context.Context, pairs [][2]string, model string) ([]NliResult, error)
}

// ZeroShotProvider implements zero-shot label classification.
type ZeroShotProvider interface {
	Identifiable
	ZeroShot(ctx context.Context, text string, labels []string, model string) (*ClassifyResult, error)
}

// StanceProvider implements stance classification against a target.
type StanceProvider interface {
	Identifiable
	Stance(ctx context.Context, text, target string, model string) (*StanceResult, error)
}

// TokenizeProvider implements tokenization and token counting.
type TokenizeProvider interface {
	Identifiable
	Tokenize(ctx context.Context, text string, model string) ([]Token, error)
	CountTokens(ctx context.Context, text string, model string) (int, error)
}

// MetadataProvider implements runtime metadata discovery, feeding the
// registry's ephemeral live layer. A provider that cannot report metadata
// for a model should return an *Error with Code ErrUnsupported rather than
// fabricating a response.
type MetadataProvider interface {
	Identifiable
	Metadata(ctx context.Context, model string) (*ModelMetadata, error)
}
