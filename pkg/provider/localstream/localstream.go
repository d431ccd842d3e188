// Package localstream adapts a local WebSocket-speaking inference daemon to
// the gateway's Chat and ChatStream capability interfaces. The wire protocol
// is a single JSON object per WebSocket text message: the client sends one
// request frame, the daemon replies with a sequence of event frames
// terminated by a frame with Kind "done" (or "error").
package localstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Provider adapts one local chat daemon, reachable over WebSocket, to Chat
// and ChatStream.
type Provider struct {
	id           string
	url          string
	defaultModel string
}

// Config configures a [New] Provider.
type Config struct {
	// ID is the provider id exposed via ProviderID. Defaults to "localstream".
	ID string

	// URL is the daemon's WebSocket endpoint, e.g. "ws://localhost:8787/chat".
	URL string

	DefaultModel string
}

// New builds a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("localstream: url is required")
	}
	id := cfg.ID
	if id == "" {
		id = "localstream"
	}
	return &Provider{id: id, url: cfg.URL, defaultModel: cfg.DefaultModel}, nil
}

// ProviderID implements ratatoskr.Identifiable.
func (p *Provider) ProviderID() string { return p.id }

func (p *Provider) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

// requestFrame is the single outgoing message a client sends to open a turn.
type requestFrame struct {
	Model    string             `json:"model"`
	Messages []wireMessage      `json:"messages"`
	Tools    []wireTool         `json:"tools,omitempty"`
	Options  wireOptions        `json:"options,omitempty"`
}

type wireMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content,omitempty"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type wireOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// eventFrame is one incoming message from the daemon. Kind is one of
// "content", "tool_call_start", "tool_call_delta", "usage", "done", "error".
type eventFrame struct {
	Kind string `json:"kind"`

	Text string `json:"text,omitempty"`

	ToolCallIndex int    `json:"tool_call_index,omitempty"`
	ToolCallID    string `json:"tool_call_id,omitempty"`
	ToolCallName  string `json:"tool_call_name,omitempty"`

	ArgumentsDelta string `json:"arguments_delta,omitempty"`

	Usage *ratatoskr.Usage `json:"usage,omitempty"`

	FinishReason string `json:"finish_reason,omitempty"`
	Error        string `json:"error,omitempty"`
}

func buildRequest(messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, model string, opts ratatoskr.ChatOptions) requestFrame {
	req := requestFrame{Model: model}
	for _, m := range messages {
		req.Messages = append(req.Messages, wireMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		})
	}
	for _, td := range tools {
		req.Tools = append(req.Tools, wireTool{
			Name:        td.Name,
			Description: td.Description,
			Parameters:  td.Parameters,
		})
	}
	req.Options = wireOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        opts.TopP,
	}
	return req
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, p.url, nil)
	if err != nil {
		return nil, ratatoskr.WrapError(ratatoskr.ErrNetwork, fmt.Errorf("localstream: dial: %w", err))
	}
	return conn, nil
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstream: marshal request: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func readFrame(ctx context.Context, conn *websocket.Conn) (*eventFrame, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	var evt eventFrame
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("localstream: unmarshal event: %w", err)
	}
	return &evt, nil
}

// Chat implements ratatoskr.ChatProvider by draining a ChatStream call.
func (p *Provider) Chat(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (*ratatoskr.ChatResponse, error) {
	events, err := p.ChatStream(ctx, messages, tools, opts)
	if err != nil {
		return nil, err
	}
	out := &ratatoskr.ChatResponse{Model: p.model(opts.Model), FinishReason: ratatoskr.FinishStop}
	toolCalls := map[int]*ratatoskr.ToolCall{}
	var order []int
	for evt := range events {
		switch evt.Kind {
		case ratatoskr.ChatEventContent:
			out.Content += evt.Text
		case ratatoskr.ChatEventToolCallStart:
			if _, ok := toolCalls[evt.ToolCallIndex]; !ok {
				order = append(order, evt.ToolCallIndex)
			}
			id := evt.ToolCallID
			if id == "" {
				id = ratatoskr.NewToolCallID()
			}
			toolCalls[evt.ToolCallIndex] = &ratatoskr.ToolCall{ID: id, Name: evt.ToolCallName}
		case ratatoskr.ChatEventToolCallDelta:
			if tc, ok := toolCalls[evt.ToolCallIndex]; ok {
				tc.Arguments += evt.ArgumentsDelta
			}
		case ratatoskr.ChatEventUsage:
			out.Usage = evt.Usage
		}
	}
	for _, idx := range order {
		out.ToolCalls = append(out.ToolCalls, *toolCalls[idx])
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = ratatoskr.FinishToolCalls
	}
	return out, nil
}

// ChatStream implements ratatoskr.ChatStreamProvider.
func (p *Provider) ChatStream(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (<-chan ratatoskr.ChatEvent, error) {
	model := p.model(opts.Model)
	if model == "" {
		return nil, ratatoskr.NewError(ratatoskr.ErrInvalidInput, "localstream: model is required")
	}
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	req := buildRequest(messages, tools, model, opts)
	if err := writeFrame(ctx, conn, req); err != nil {
		conn.Close(websocket.StatusInternalError, "request marshal failed")
		return nil, ratatoskr.WrapError(ratatoskr.ErrNetwork, err)
	}

	out := make(chan ratatoskr.ChatEvent, 16)
	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "stream complete")

		for {
			evt, err := readFrame(ctx, conn)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				return
			}
			switch evt.Kind {
			case "content":
				select {
				case out <- ratatoskr.ChatEvent{Kind: ratatoskr.ChatEventContent, Text: evt.Text}:
				case <-ctx.Done():
					return
				}
			case "tool_call_start":
				select {
				case out <- ratatoskr.ChatEvent{
					Kind:          ratatoskr.ChatEventToolCallStart,
					ToolCallIndex: evt.ToolCallIndex,
					ToolCallID:    evt.ToolCallID,
					ToolCallName:  evt.ToolCallName,
				}:
				case <-ctx.Done():
					return
				}
			case "tool_call_delta":
				select {
				case out <- ratatoskr.ChatEvent{
					Kind:           ratatoskr.ChatEventToolCallDelta,
					ToolCallIndex:  evt.ToolCallIndex,
					ArgumentsDelta: evt.ArgumentsDelta,
				}:
				case <-ctx.Done():
					return
				}
			case "usage":
				if evt.Usage != nil {
					select {
					case out <- ratatoskr.ChatEvent{Kind: ratatoskr.ChatEventUsage, Usage: *evt.Usage}:
					case <-ctx.Done():
						return
					}
				}
			case "done":
				select {
				case out <- ratatoskr.ChatEvent{Kind: ratatoskr.ChatEventDone}:
				case <-ctx.Done():
				}
				return
			case "error":
				return
			}
		}
	}()
	return out, nil
}
