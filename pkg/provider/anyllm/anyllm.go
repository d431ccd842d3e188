// Package anyllm adapts github.com/mozilla-ai/any-llm-go, a unified
// multi-provider LLM client, to the gateway's Chat, ChatStream, Generate and
// GenerateStream capability interfaces. One Provider wraps exactly one
// backend (OpenAI, Anthropic, Gemini, Ollama, ...); multiple backends are
// registered as distinct providers in the same dispatch chain.
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Provider adapts one any-llm-go backend to Chat, ChatStream, Generate and
// GenerateStream.
type Provider struct {
	id           string
	backend      anyllmlib.Provider
	defaultModel string
}

// Config configures a [New] Provider.
type Config struct {
	// ID is the provider id exposed via ProviderID. Defaults to Backend.
	ID string

	// Backend selects the any-llm-go backend: one of "openai", "anthropic",
	// "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp",
	// "llamafile".
	Backend string

	DefaultModel string
	APIKey       string
	BaseURL      string
}

// New builds a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.Backend == "" {
		return nil, fmt.Errorf("anyllm: backend is required")
	}
	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	backend, err := createBackend(cfg.Backend, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", cfg.Backend, err)
	}
	id := cfg.ID
	if id == "" {
		id = cfg.Backend
	}
	return &Provider{id: id, backend: backend, defaultModel: cfg.DefaultModel}, nil
}

func createBackend(backend string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(backend) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", backend)
	}
}

// ProviderID implements ratatoskr.Identifiable.
func (p *Provider) ProviderID() string { return p.id }

func (p *Provider) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func convertMessage(m ratatoskr.Message) anyllmlib.Message {
	msg := anyllmlib.Message{
		Role:       string(m.Role),
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, anyllmlib.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: anyllmlib.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return msg
}

func buildChatParams(messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, model string, opts ratatoskr.ChatOptions) anyllmlib.CompletionParams {
	converted := make([]anyllmlib.Message, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, convertMessage(m))
	}
	params := anyllmlib.CompletionParams{Model: model, Messages: converted}
	applyCommonOptions(&params, opts.Temperature, opts.MaxTokens, opts.TopP, opts.StopSequences)
	for _, td := range tools {
		params.Tools = append(params.Tools, anyllmlib.Tool{
			Type: "function",
			Function: anyllmlib.Function{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}
	return params
}

func buildGenerateParams(prompt, model string, opts ratatoskr.GenerateOptions) anyllmlib.CompletionParams {
	params := anyllmlib.CompletionParams{
		Model:    model,
		Messages: []anyllmlib.Message{{Role: string(ratatoskr.RoleUser), Content: prompt}},
	}
	applyCommonOptions(&params, opts.Temperature, opts.MaxTokens, opts.TopP, opts.StopSequences)
	return params
}

func applyCommonOptions(params *anyllmlib.CompletionParams, temperature *float64, maxTokens *int, topP *float64, stop []string) {
	if temperature != nil {
		t := *temperature
		params.Temperature = &t
	}
	if maxTokens != nil {
		mt := *maxTokens
		params.MaxTokens = &mt
	}
	if topP != nil {
		tp := *topP
		params.TopP = &tp
	}
	if len(stop) > 0 {
		params.Stop = stop
	}
}

// Chat implements ratatoskr.ChatProvider.
func (p *Provider) Chat(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (*ratatoskr.ChatResponse, error) {
	model := p.model(opts.Model)
	if model == "" {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "anyllm: model is required")
	}
	params := buildChatParams(messages, tools, model, opts)
	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ratatoskr.ErrEmptyResponseErr
	}
	choice := resp.Choices[0]
	out := &ratatoskr.ChatResponse{
		Content:      choice.Message.ContentString(),
		Model:        model,
		FinishReason: toFinishReason(choice.FinishReason),
	}
	if resp.Usage != nil {
		out.Usage = ratatoskr.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = ratatoskr.NewToolCallID()
		}
		out.ToolCalls = append(out.ToolCalls, ratatoskr.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// ChatStream implements ratatoskr.ChatStreamProvider.
func (p *Provider) ChatStream(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (<-chan ratatoskr.ChatEvent, error) {
	model := p.model(opts.Model)
	if model == "" {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "anyllm: model is required")
	}
	params := buildChatParams(messages, tools, model, opts)
	backendChunks, backendErrs := p.backend.CompletionStream(ctx, params)

	out := make(chan ratatoskr.ChatEvent, 16)
	go func() {
		defer close(out)
		started := map[int]bool{}

		for chunk := range backendChunks {
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				select {
				case out <- ratatoskr.ChatEvent{Kind: ratatoskr.ChatEventContent, Text: delta.Content}:
				case <-ctx.Done():
					return
				}
			}
			for i, tc := range delta.ToolCalls {
				if !started[i] && tc.ID != "" {
					started[i] = true
					select {
					case out <- ratatoskr.ChatEvent{
						Kind:          ratatoskr.ChatEventToolCallStart,
						ToolCallIndex: i,
						ToolCallID:    tc.ID,
						ToolCallName:  tc.Function.Name,
					}:
					case <-ctx.Done():
						return
					}
				}
				if tc.Function.Arguments != "" {
					select {
					case out <- ratatoskr.ChatEvent{
						Kind:           ratatoskr.ChatEventToolCallDelta,
						ToolCallIndex:  i,
						ArgumentsDelta: tc.Function.Arguments,
					}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := <-backendErrs; err != nil {
			return
		}
		select {
		case out <- ratatoskr.ChatEvent{Kind: ratatoskr.ChatEventDone}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// Generate implements ratatoskr.GenerateProvider.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ratatoskr.GenerateOptions) (*ratatoskr.GenerateResponse, error) {
	model := p.model(opts.Model)
	if model == "" {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "anyllm: model is required")
	}
	params := buildGenerateParams(prompt, model, opts)
	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ratatoskr.ErrEmptyResponseErr
	}
	choice := resp.Choices[0]
	out := &ratatoskr.GenerateResponse{
		Content:      choice.Message.ContentString(),
		Model:        model,
		FinishReason: toFinishReason(choice.FinishReason),
	}
	if resp.Usage != nil {
		out.Usage = ratatoskr.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// GenerateStream implements ratatoskr.GenerateStreamProvider.
func (p *Provider) GenerateStream(ctx context.Context, prompt string, opts ratatoskr.GenerateOptions) (<-chan ratatoskr.GenerateEvent, error) {
	model := p.model(opts.Model)
	if model == "" {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "anyllm: model is required")
	}
	params := buildGenerateParams(prompt, model, opts)
	backendChunks, backendErrs := p.backend.CompletionStream(ctx, params)

	out := make(chan ratatoskr.GenerateEvent, 16)
	go func() {
		defer close(out)
		for chunk := range backendChunks {
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				select {
				case out <- ratatoskr.GenerateEvent{Kind: ratatoskr.GenerateEventContent, Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := <-backendErrs; err != nil {
			return
		}
		select {
		case out <- ratatoskr.GenerateEvent{Kind: ratatoskr.GenerateEventDone}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func toFinishReason(reason string) ratatoskr.FinishReason {
	switch reason {
	case string(anyllmlib.FinishReasonLength):
		return ratatoskr.FinishLength
	case string(anyllmlib.FinishReasonToolCalls):
		return ratatoskr.FinishToolCalls
	case "content_filter":
		return ratatoskr.FinishContentFilter
	default:
		return ratatoskr.FinishStop
	}
}

func classifyError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid api key"):
		return ratatoskr.ErrAuthFailedErr
	case strings.Contains(lower, "rate limit"):
		return ratatoskr.NewRateLimitedError(0)
	case strings.Contains(lower, "not found"), strings.Contains(lower, "unknown model"):
		return ratatoskr.ErrModelNotAvailableErr
	default:
		return ratatoskr.WrapError(ratatoskr.ErrAPI, fmt.Errorf("anyllm: %w", err))
	}
}
