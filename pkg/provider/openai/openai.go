// Package openai adapts the OpenAI chat-completions API to the gateway's
// Chat and ChatStream capability interfaces via github.com/openai/openai-go.
//
// This adapter covers plain text turns, temperature/top_p/max_tokens/stop,
// and tool-call round-tripping; it is not a complete client for every
// OpenAI request shape (no vision/audio content parts, no assistants API).
package openai

import (
	"context"
	"errors"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Provider adapts one OpenAI-compatible endpoint (OpenAI itself, or a
// compatible gateway reachable at a custom BaseURL) to Chat and ChatStream.
type Provider struct {
	id           string
	client       oai.Client
	defaultModel string
}

// Config configures a [New] Provider.
type Config struct {
	// ID is the provider id exposed via ProviderID. Defaults to "openai".
	ID string

	APIKey       string
	BaseURL      string
	Organization string
	DefaultModel string
}

// New builds a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Organization != "" {
		opts = append(opts, option.WithOrganization(cfg.Organization))
	}
	id := cfg.ID
	if id == "" {
		id = "openai"
	}
	return &Provider{
		id:           id,
		client:       oai.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
	}, nil
}

// ProviderID implements ratatoskr.Identifiable.
func (p *Provider) ProviderID() string { return p.id }

func (p *Provider) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func convertMessage(m ratatoskr.Message) (oai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case ratatoskr.RoleSystem:
		return oai.SystemMessage(m.Content), nil
	case ratatoskr.RoleUser:
		return oai.UserMessage(m.Content), nil
	case ratatoskr.RoleAssistant:
		asst := oai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = oai.String(m.Content)
		}
		if m.Name != "" {
			asst.Name = oai.String(m.Name)
		}
		for _, tc := range m.ToolCalls {
			asst.ToolCalls = append(asst.ToolCalls, oai.ChatCompletionMessageToolCallParam{
				ID: tc.ID,
				Function: oai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return oai.ChatCompletionMessageParamUnion{OfAssistant: &asst}, nil
	case ratatoskr.RoleTool:
		return oai.ToolMessage(m.Content, m.ToolCallID), nil
	default:
		return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: unknown message role %q", m.Role)
	}
}

func buildParams(messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, model string, opts ratatoskr.ChatOptions) (oai.ChatCompletionNewParams, error) {
	msgs := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		converted, err := convertMessage(m)
		if err != nil {
			return oai.ChatCompletionNewParams{}, err
		}
		msgs = append(msgs, converted)
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}
	for _, td := range tools {
		params.Tools = append(params.Tools, oai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        td.Name,
				Description: param.NewOpt(td.Description),
				Parameters:  shared.FunctionParameters(td.Parameters),
			},
		})
	}

	if opts.Temperature != nil {
		params.Temperature = param.NewOpt(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = param.NewOpt(*opts.TopP)
	}
	if opts.MaxTokens != nil {
		params.MaxCompletionTokens = param.NewOpt(int64(*opts.MaxTokens))
	}
	if opts.FrequencyPenalty != nil {
		params.FrequencyPenalty = param.NewOpt(*opts.FrequencyPenalty)
	}
	if opts.PresencePenalty != nil {
		params.PresencePenalty = param.NewOpt(*opts.PresencePenalty)
	}
	if opts.Seed != nil {
		params.Seed = param.NewOpt(*opts.Seed)
	}
	if len(opts.StopSequences) > 0 {
		params.Stop = oai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopSequences}
	}
	return params, nil
}

// Chat implements ratatoskr.ChatProvider.
func (p *Provider) Chat(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (*ratatoskr.ChatResponse, error) {
	model := p.model(opts.Model)
	if model == "" {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "openai: model is required")
	}
	params, err := buildParams(messages, tools, model, opts)
	if err != nil {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, err.Error())
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ratatoskr.ErrEmptyResponseErr
	}
	choice := resp.Choices[0]

	out := &ratatoskr.ChatResponse{
		Content: choice.Message.Content,
		Model:   resp.Model,
		Usage: ratatoskr.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		FinishReason: toFinishReason(choice.FinishReason),
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
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "openai: model is required")
	}
	params, err := buildParams(messages, tools, model, opts)
	if err != nil {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, err.Error())
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, classifyError(err)
	}

	out := make(chan ratatoskr.ChatEvent, 16)
	go func() {
		defer close(out)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
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
			for _, tc := range delta.ToolCalls {
				idx := int(tc.Index)
				if tc.ID != "" {
					select {
					case out <- ratatoskr.ChatEvent{
						Kind:          ratatoskr.ChatEventToolCallStart,
						ToolCallIndex: idx,
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
						ToolCallIndex:  idx,
						ArgumentsDelta: tc.Function.Arguments,
					}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return
		}
		select {
		case out <- ratatoskr.ChatEvent{Kind: ratatoskr.ChatEventDone}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func toFinishReason(reason string) ratatoskr.FinishReason {
	switch reason {
	case "length":
		return ratatoskr.FinishLength
	case "tool_calls":
		return ratatoskr.FinishToolCalls
	case "content_filter":
		return ratatoskr.FinishContentFilter
	default:
		return ratatoskr.FinishStop
	}
}

// classifyError maps an openai-go error into the gateway's closed taxonomy.
// openai-go surfaces HTTP errors as *openai.Error carrying a status code.
func classifyError(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return ratatoskr.ErrAuthFailedErr
		case 404:
			return ratatoskr.ErrModelNotAvailableErr
		case 429:
			return ratatoskr.NewRateLimitedError(0)
		case 400:
			return ratatoskr.NewError(ratatoskr.ErrInvalidInput, apiErr.Error())
		}
		return ratatoskr.NewAPIError(apiErr.StatusCode, apiErr.Error())
	}
	return ratatoskr.WrapError(ratatoskr.ErrAPI, fmt.Errorf("openai: %w", err))
}
