// Package openaiembed adapts the OpenAI embeddings API to the gateway's
// Embed and EmbedBatch capability interfaces.
package openaiembed

import (
	"context"
	"errors"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Provider adapts one OpenAI-compatible embeddings endpoint to Embed and
// EmbedBatch.
type Provider struct {
	id           string
	client       oai.Client
	defaultModel string
}

// Config configures a [New] Provider.
type Config struct {
	// ID is the provider id exposed via ProviderID. Defaults to "openai-embed".
	ID string

	APIKey       string
	BaseURL      string
	DefaultModel string
}

// New builds a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openaiembed: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	id := cfg.ID
	if id == "" {
		id = "openai-embed"
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Provider{id: id, client: oai.NewClient(opts...), defaultModel: model}, nil
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
	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: m,
		Input: oai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
	})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Data) == 0 {
		return nil, ratatoskr.ErrEmptyResponseErr
	}
	values := float64ToFloat32(resp.Data[0].Embedding)
	return &ratatoskr.Embedding{Values: values, Model: m, Dimensions: len(values)}, nil
}

// EmbedBatch implements ratatoskr.EmbedBatchProvider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string, model string) ([]ratatoskr.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	m := p.model(model)
	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: m,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, ratatoskr.NewError(ratatoskr.ErrAPI, "openaiembed: response size mismatch")
	}
	out := make([]ratatoskr.Embedding, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) >= len(texts) {
			return nil, ratatoskr.NewError(ratatoskr.ErrAPI, "openaiembed: unexpected embedding index")
		}
		values := float64ToFloat32(e.Embedding)
		out[e.Index] = ratatoskr.Embedding{Values: values, Model: m, Dimensions: len(values)}
	}
	return out, nil
}

func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

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
		}
		return ratatoskr.NewAPIError(apiErr.StatusCode, apiErr.Error())
	}
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return ratatoskr.WrapError(ratatoskr.ErrNetwork, err)
	}
	return ratatoskr.WrapError(ratatoskr.ErrAPI, err)
}
