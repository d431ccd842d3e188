package ratatoskr

import (
	"context"
)

// Gateway is the unified capability surface a caller drives: one method per
// operation, backed by whichever provider chain the [Builder] wired up.
// A Gateway is safe for concurrent use and has no state beyond the
// dispatcher and model registry it was built with.
type Gateway struct {
	dispatcher dispatcherFacade
	registry   registryFacade
	closers    []func() error
}

// dispatcherFacade narrows internal/dispatch.Dispatcher to the methods
// Gateway forwards to, keeping this package import-free of internal/dispatch
// at the type level (the concrete value is still a *dispatch.Dispatcher,
// wired in by Builder).
type dispatcherFacade interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (*ChatResponse, error)
	ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (<-chan ChatEvent, error)
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResponse, error)
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan GenerateEvent, error)
	Embed(ctx context.Context, text, model string) (*Embedding, error)
	EmbedBatch(ctx context.Context, texts []string, model string) ([]Embedding, error)
	Nli(ctx context.Context, premise, hypothesis, model string) (*NliResult, error)
	NliBatch(ctx context.Context, pairs [][2]string, model string) ([]NliResult, error)
	ZeroShot(ctx context.Context, text string, labels []string, model string) (*ClassifyResult, error)
	Stance(ctx context.Context, text, target, model string) (*StanceResult, error)
	Tokenize(ctx context.Context, text, model string) ([]Token, error)
	CountTokens(ctx context.Context, text, model string) (int, error)
	Metadata(model string) (ModelMetadata, bool)
	FetchModelMetadata(ctx context.Context, model string) (ModelMetadata, error)
	WarmModels(ctx context.Context, models []string) map[string]error
	ModelStatus(model string) ModelStatusResult
	Capabilities() Capabilities
}

// registryFacade narrows internal/registry.Registry to what ListModels needs.
type registryFacade interface {
	List() []ModelMetadata
}

// Chat issues a non-streaming chat completion against model.
func (g *Gateway) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (*ChatResponse, error) {
	return g.dispatcher.Chat(ctx, messages, tools, opts)
}

// ChatStream issues a streaming chat completion against model.
func (g *Gateway) ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (<-chan ChatEvent, error) {
	return g.dispatcher.ChatStream(ctx, messages, tools, opts)
}

// Generate issues a non-streaming single-prompt completion.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResponse, error) {
	return g.dispatcher.Generate(ctx, prompt, opts)
}

// GenerateStream issues a streaming single-prompt completion.
func (g *Gateway) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan GenerateEvent, error) {
	return g.dispatcher.GenerateStream(ctx, prompt, opts)
}

// Embed computes a single dense embedding vector.
func (g *Gateway) Embed(ctx context.Context, text, model string) (*Embedding, error) {
	return g.dispatcher.Embed(ctx, text, model)
}

// EmbedBatch computes dense embedding vectors for a batch of texts.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string, model string) ([]Embedding, error) {
	return g.dispatcher.EmbedBatch(ctx, texts, model)
}

// Nli runs natural-language inference over a premise/hypothesis pair.
func (g *Gateway) Nli(ctx context.Context, premise, hypothesis, model string) (*NliResult, error) {
	return g.dispatcher.Nli(ctx, premise, hypothesis, model)
}

// NliBatch runs natural-language inference over a batch of pairs.
func (g *Gateway) NliBatch(ctx context.Context, pairs [][2]string, model string) ([]NliResult, error) {
	return g.dispatcher.NliBatch(ctx, pairs, model)
}

// ZeroShot classifies text against an open label set.
func (g *Gateway) ZeroShot(ctx context.Context, text string, labels []string, model string) (*ClassifyResult, error) {
	return g.dispatcher.ZeroShot(ctx, text, labels, model)
}

// Stance classifies text's stance toward target.
func (g *Gateway) Stance(ctx context.Context, text, target, model string) (*StanceResult, error) {
	return g.dispatcher.Stance(ctx, text, target, model)
}

// Tokenize splits text into model-specific tokens.
func (g *Gateway) Tokenize(ctx context.Context, text, model string) ([]Token, error) {
	return g.dispatcher.Tokenize(ctx, text, model)
}

// CountTokens returns the token count for text under model without
// materializing the token list.
func (g *Gateway) CountTokens(ctx context.Context, text, model string) (int, error) {
	return g.dispatcher.CountTokens(ctx, text, model)
}

// Metadata returns the registry's current merged view of model, without
// contacting any provider.
func (g *Gateway) Metadata(model string) (ModelMetadata, bool) {
	return g.dispatcher.Metadata(model)
}

// FetchModelMetadata asks the first registered metadata provider to report
// live data for model and folds it into the registry's ephemeral layer.
func (g *Gateway) FetchModelMetadata(ctx context.Context, model string) (ModelMetadata, error) {
	return g.dispatcher.FetchModelMetadata(ctx, model)
}

// WarmModels concurrently fetches metadata for every model in models,
// returning a per-model error map containing only the failures.
func (g *Gateway) WarmModels(ctx context.Context, models []string) map[string]error {
	return g.dispatcher.WarmModels(ctx, models)
}

// ModelStatus reports model's current lifecycle status, derived from the
// circuit breaker state of the chain entries backing it. It never contacts a
// provider.
func (g *Gateway) ModelStatus(model string) ModelStatusResult {
	return g.dispatcher.ModelStatus(model)
}

// Capabilities reports how many providers are registered per capability
// across every chain the gateway dispatches to.
func (g *Gateway) Capabilities() Capabilities {
	return g.dispatcher.Capabilities()
}

// ListModels returns a lightweight summary of every model known to the
// registry, across all three of its merge layers.
func (g *Gateway) ListModels() []ModelInfo {
	full := g.registry.List()
	out := make([]ModelInfo, len(full))
	for i, m := range full {
		out[i] = ModelInfo{ID: m.ID, ProviderID: m.ProviderID, Capabilities: m.Capabilities}
	}
	return out
}

// Close releases resources held by providers registered through Builder
// (e.g. the optional Postgres registry source). It is safe to call more
// than once; every closer runs, and the first error returned by any of them
// is returned.
func (g *Gateway) Close() error {
	var firstErr error
	for _, c := range g.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
