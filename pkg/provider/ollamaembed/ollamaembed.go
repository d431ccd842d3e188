// Package ollamaembed adapts a local Ollama server's /api/embed endpoint to
// the gateway's Embed and EmbedBatch capability interfaces via
// github.com/ollama/ollama/api.
package ollamaembed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// DefaultBaseURL is the default address of a locally running Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// Provider adapts one Ollama server to Embed and EmbedBatch.
type Provider struct {
	id           string
	client       *api.Client
	defaultModel string
}

// Config configures a [New] Provider.
type Config struct {
	// ID is the provider id exposed via ProviderID. Defaults to "ollama-embed".
	ID string

	// BaseURL is the Ollama server address. Defaults to DefaultBaseURL.
	BaseURL      string
	DefaultModel string
}

// New builds a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.DefaultModel == "" {
		return nil, fmt.Errorf("ollamaembed: default model is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("ollamaembed: parse base url: %w", err)
	}
	id := cfg.ID
	if id == "" {
		id = "ollama-embed"
	}
	return &Provider{
		id:           id,
		client:       api.NewClient(u, http.DefaultClient),
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

// Embed implements ratatoskr.EmbedProvider.
func (p *Provider) Embed(ctx context.Context, text, model string) (*ratatoskr.Embedding, error) {
	m := p.model(model)
	resp, err := p.client.Embed(ctx, &api.EmbedRequest{Model: m, Input: text})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, ratatoskr.ErrEmptyResponseErr
	}
	values := resp.Embeddings[0]
	return &ratatoskr.Embedding{Values: values, Model: m, Dimensions: len(values)}, nil
}

// EmbedBatch implements ratatoskr.EmbedBatchProvider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string, model string) ([]ratatoskr.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	m := p.model(model)
	resp, err := p.client.Embed(ctx, &api.EmbedRequest{Model: m, Input: texts})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, ratatoskr.NewError(ratatoskr.ErrAPI, "ollamaembed: response size mismatch")
	}
	out := make([]ratatoskr.Embedding, len(texts))
	for i, vec := range resp.Embeddings {
		out[i] = ratatoskr.Embedding{Values: vec, Model: m, Dimensions: len(vec)}
	}
	return out, nil
}

func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return ratatoskr.ErrModelNotAvailableErr
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"):
		return ratatoskr.ErrAuthFailedErr
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return ratatoskr.WrapError(ratatoskr.ErrNetwork, fmt.Errorf("ollamaembed: %w", err))
	default:
		return ratatoskr.WrapError(ratatoskr.ErrAPI, fmt.Errorf("ollamaembed: %w", err))
	}
}
