package dispatch_test

import (
	"context"
	"testing"

	"github.com/emesal/ratatoskr/internal/dispatch"
	"github.com/emesal/ratatoskr/internal/registry"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// stubChat is a minimal ChatProvider test double that always fails, used to
// trip a circuit breaker open for ModelStatus tests.
type stubChat struct {
	id  string
	err error
}

func (s *stubChat) ProviderID() string { return s.id }
func (s *stubChat) Chat(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (*ratatoskr.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ratatoskr.ChatResponse{}, nil
}

func TestDispatcher_ModelStatusUnknownModel(t *testing.T) {
	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)

	got := d.ModelStatus("no-such-model")
	if got.Status != ratatoskr.ModelUnavailable || got.Reason == "" {
		t.Fatalf("expected Unavailable with a reason for an unknown model, got %+v", got)
	}
}

func TestDispatcher_ModelStatusAvailableWithNoChainEntry(t *testing.T) {
	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)

	// gpt-4o is seeded with ProviderID "openai" but no chat provider is
	// registered, so there's no breaker to consult.
	got := d.ModelStatus("gpt-4o")
	if got.Status != ratatoskr.ModelAvailable {
		t.Fatalf("expected Available for a model with no registered provider, got %+v", got)
	}
}

func TestDispatcher_ModelStatusReadyThenUnavailableOnOpenBreaker(t *testing.T) {
	cfg := breakerCfg()
	cfg.MaxFailures = 1
	d := dispatch.New(newDeps(), registry.New(), cfg, 0)
	d.RegisterChat(&stubChat{id: "openai", err: ratatoskr.ErrAuthFailedErr}, 0)

	if got := d.ModelStatus("gpt-4o"); got.Status != ratatoskr.ModelReady {
		t.Fatalf("expected Ready before any failure, got %+v", got)
	}

	_, err := d.Chat(context.Background(), nil, nil, ratatoskr.ChatOptions{Model: "gpt-4o"})
	if err == nil {
		t.Fatalf("expected the stub provider's error to surface")
	}

	got := d.ModelStatus("gpt-4o")
	if got.Status != ratatoskr.ModelUnavailable || got.Reason == "" {
		t.Fatalf("expected Unavailable with a reason once the breaker opens, got %+v", got)
	}
}

func TestDispatcher_Capabilities(t *testing.T) {
	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)
	d.RegisterChat(&stubChat{id: "openai"}, 0)

	caps := d.Capabilities()
	if !caps.Supports(ratatoskr.CapabilityChat) {
		t.Fatalf("expected chat to be supported after registering a chat provider")
	}
	if caps.Supports(ratatoskr.CapabilityEmbed) {
		t.Fatalf("expected embed to be unsupported with no registered embed provider")
	}
	if caps.Counts[ratatoskr.CapabilityChat] != 1 {
		t.Errorf("expected exactly 1 registered chat provider, got %d", caps.Counts[ratatoskr.CapabilityChat])
	}
}
