// Package mock provides a configurable, call-recording implementation of
// the Chat, ChatStream, Generate, Embed, EmbedBatch and Metadata capability
// interfaces, for use in tests and as the "mock" provider that
// cmd/ratatoskrd registers for chat, chat_stream, embed and embed_batch.
//
//	p := &mock.Provider{ID: "fixture", ChatResponse: &ratatoskr.ChatResponse{Content: "hi"}}
//	resp, err := p.Chat(ctx, nil, nil, ratatoskr.ChatOptions{Model: "fixture-model"})
package mock

import (
	"context"
	"sync"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// ChatCall records the arguments of one Chat invocation.
type ChatCall struct {
	Messages []ratatoskr.Message
	Tools    []ratatoskr.ToolDefinition
	Opts     ratatoskr.ChatOptions
}

// ChatStreamCall records the arguments of one ChatStream invocation.
type ChatStreamCall struct {
	Messages []ratatoskr.Message
	Tools    []ratatoskr.ToolDefinition
	Opts     ratatoskr.ChatOptions
}

// EmbedCall records the arguments of one Embed invocation.
type EmbedCall struct {
	Text  string
	Model string
}

// EmbedBatchCall records the arguments of one EmbedBatch invocation.
type EmbedBatchCall struct {
	Texts []string
	Model string
}

// MetadataCall records the arguments of one Metadata invocation.
type MetadataCall struct {
	Model string
}

// Provider is a configurable double implementing Chat, ChatStream,
// Generate, Embed, EmbedBatch and Metadata. Each capability's behavior is
// controlled by a pair of fields (a canned response and a canned error);
// setting the error field makes the call fail regardless of the response
// field. Call history is recorded under mu for concurrent-safe inspection
// from tests, for every capability except Generate, which records no calls.
type Provider struct {
	// ID is returned by ProviderID. Defaults to "mock" when empty.
	ID string

	mu sync.Mutex

	ChatResponse *ratatoskr.ChatResponse
	ChatErr      error
	ChatCalls    []ChatCall

	ChatStreamEvents []ratatoskr.ChatEvent
	ChatStreamErr    error
	ChatStreamCalls  []ChatStreamCall

	GenerateResponse *ratatoskr.GenerateResponse
	GenerateErr      error

	EmbedResponse *ratatoskr.Embedding
	EmbedErr      error
	EmbedCalls    []EmbedCall

	EmbedBatchResponse []ratatoskr.Embedding
	EmbedBatchErr      error
	EmbedBatchCalls    []EmbedBatchCall

	MetadataResponse *ratatoskr.ModelMetadata
	MetadataErr      error
	MetadataCalls    []MetadataCall
}

// ProviderID implements ratatoskr.Identifiable.
func (p *Provider) ProviderID() string {
	if p.ID == "" {
		return "mock"
	}
	return p.ID
}

// Chat implements ratatoskr.ChatProvider.
func (p *Provider) Chat(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (*ratatoskr.ChatResponse, error) {
	p.mu.Lock()
	p.ChatCalls = append(p.ChatCalls, ChatCall{Messages: messages, Tools: tools, Opts: opts})
	p.mu.Unlock()
	if p.ChatErr != nil {
		return nil, p.ChatErr
	}
	if p.ChatResponse != nil {
		return p.ChatResponse, nil
	}
	return &ratatoskr.ChatResponse{Model: opts.Model}, nil
}

// ChatStream implements ratatoskr.ChatStreamProvider. The configured events
// are pushed into a closed, fully-buffered channel before returning.
func (p *Provider) ChatStream(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (<-chan ratatoskr.ChatEvent, error) {
	p.mu.Lock()
	p.ChatStreamCalls = append(p.ChatStreamCalls, ChatStreamCall{Messages: messages, Tools: tools, Opts: opts})
	p.mu.Unlock()
	if p.ChatStreamErr != nil {
		return nil, p.ChatStreamErr
	}
	ch := make(chan ratatoskr.ChatEvent, len(p.ChatStreamEvents))
	for _, e := range p.ChatStreamEvents {
		ch <- e
	}
	close(ch)
	return ch, nil
}

// Generate implements ratatoskr.GenerateProvider.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ratatoskr.GenerateOptions) (*ratatoskr.GenerateResponse, error) {
	if p.GenerateErr != nil {
		return nil, p.GenerateErr
	}
	if p.GenerateResponse != nil {
		return p.GenerateResponse, nil
	}
	return &ratatoskr.GenerateResponse{Model: opts.Model}, nil
}

// Embed implements ratatoskr.EmbedProvider.
func (p *Provider) Embed(ctx context.Context, text, model string) (*ratatoskr.Embedding, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, EmbedCall{Text: text, Model: model})
	p.mu.Unlock()
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	if p.EmbedResponse != nil {
		return p.EmbedResponse, nil
	}
	return &ratatoskr.Embedding{Model: model}, nil
}

// EmbedBatch implements ratatoskr.EmbedBatchProvider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string, model string) ([]ratatoskr.Embedding, error) {
	p.mu.Lock()
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, EmbedBatchCall{Texts: texts, Model: model})
	p.mu.Unlock()
	if p.EmbedBatchErr != nil {
		return nil, p.EmbedBatchErr
	}
	if p.EmbedBatchResponse != nil {
		return p.EmbedBatchResponse, nil
	}
	out := make([]ratatoskr.Embedding, len(texts))
	for i := range out {
		out[i] = ratatoskr.Embedding{Model: model}
	}
	return out, nil
}

// Metadata implements ratatoskr.MetadataProvider.
func (p *Provider) Metadata(ctx context.Context, model string) (*ratatoskr.ModelMetadata, error) {
	p.mu.Lock()
	p.MetadataCalls = append(p.MetadataCalls, MetadataCall{Model: model})
	p.mu.Unlock()
	if p.MetadataErr != nil {
		return nil, p.MetadataErr
	}
	if p.MetadataResponse != nil {
		return p.MetadataResponse, nil
	}
	return &ratatoskr.ModelMetadata{ID: model, ProviderID: p.ProviderID()}, nil
}
