package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emesal/ratatoskr/internal/cache"
	"github.com/emesal/ratatoskr/internal/dispatch"
	"github.com/emesal/ratatoskr/internal/registry"
	"github.com/emesal/ratatoskr/internal/resilience"
	"github.com/emesal/ratatoskr/internal/validate"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// stubEmbed is a minimal EmbedProvider test double recording calls and
// returning configured responses/errors in order.
type stubEmbed struct {
	id    string
	mu    sync.Mutex
	calls int
	err   error
	resp  *ratatoskr.Embedding
}

func (s *stubEmbed) ProviderID() string { return s.id }
func (s *stubEmbed) Embed(ctx context.Context, text, model string) (*ratatoskr.Embedding, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func newDeps() *dispatch.Deps {
	return &dispatch.Deps{
		ResponseCache: cache.NewResponseCache(cache.ResponseCacheConfig{}),
		Discovery:     cache.NewDiscoveryCache(cache.DiscoveryCacheConfig{}),
		Validator:     validate.New(registry.New(), nil, ratatoskr.ValidationWarn, nil),
		Retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  1,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
		}),
	}
}

func breakerCfg() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{MaxFailures: 100, ResetTimeout: time.Hour}
}

func TestDispatcher_EmbedSuccess(t *testing.T) {
	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)
	d.RegisterEmbed(&stubEmbed{id: "openai", resp: &ratatoskr.Embedding{Model: "text-embedding-3-small"}}, 0)

	got, err := d.Embed(context.Background(), "hello", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "text-embedding-3-small" {
		t.Errorf("Model: got %q", got.Model)
	}
}

func TestDispatcher_FallsBackOnModelNotAvailable(t *testing.T) {
	primary := &stubEmbed{id: "a", err: ratatoskr.ErrModelNotAvailableErr}
	secondary := &stubEmbed{id: "b", resp: &ratatoskr.Embedding{Model: "m"}}

	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)
	d.RegisterEmbed(primary, 0)
	d.RegisterEmbed(secondary, 1)

	got, err := d.Embed(context.Background(), "hello", "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "m" {
		t.Errorf("expected fallback provider's response, got %+v", got)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls: got %d, want 1", primary.calls)
	}
}

func TestDispatcher_TerminalErrorPropagatesWithoutFallback(t *testing.T) {
	primary := &stubEmbed{id: "a", err: ratatoskr.NewError(ratatoskr.ErrInvalidInput, "bad request")}
	secondary := &stubEmbed{id: "b", resp: &ratatoskr.Embedding{Model: "m"}}

	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)
	d.RegisterEmbed(primary, 0)
	d.RegisterEmbed(secondary, 1)

	_, err := d.Embed(context.Background(), "hello", "m")
	if err == nil {
		t.Fatal("expected terminal error to propagate")
	}
	if secondary.calls != 0 {
		t.Errorf("expected secondary to never be tried, got %d calls", secondary.calls)
	}
}

func TestDispatcher_UnsupportedParameterRecordsAndFallsBack(t *testing.T) {
	primary := &stubEmbed{id: "a", err: ratatoskr.NewUnsupportedParameterError(ratatoskr.ParamSeed, "no seed support")}
	secondary := &stubEmbed{id: "b", resp: &ratatoskr.Embedding{Model: "m"}}

	deps := newDeps()
	d := dispatch.New(deps, registry.New(), breakerCfg(), 0)
	d.RegisterEmbed(primary, 0)
	d.RegisterEmbed(secondary, 1)

	_, err := d.Embed(context.Background(), "hello", "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := deps.Discovery.List()
	if len(records) != 1 {
		t.Fatalf("expected 1 discovery record, got %d", len(records))
	}
	if records[0].ProviderID != "a" {
		t.Errorf("ProviderID: got %q, want %q", records[0].ProviderID, "a")
	}
}

func TestDispatcher_EmptyChainReturnsNoProvider(t *testing.T) {
	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)
	_, err := d.Embed(context.Background(), "hello", "m")
	if err == nil {
		t.Fatal("expected an error for an empty chain")
	}
	code, ok := ratatoskr.CodeOf(err)
	if !ok || code != ratatoskr.ErrNoProvider {
		t.Errorf("got code %v (ok=%v), want ErrNoProvider", code, ok)
	}
}

func TestDispatcher_EmbedIsCacheable(t *testing.T) {
	p := &stubEmbed{id: "a", resp: &ratatoskr.Embedding{Model: "m"}}
	d := dispatch.New(newDeps(), registry.New(), breakerCfg(), 0)
	d.RegisterEmbed(p, 0)

	ctx := context.Background()
	if _, err := d.Embed(ctx, "hello", "m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Embed(ctx, "hello", "m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("expected second call to hit the response cache, got %d provider calls", p.calls)
	}
}

func TestEmbedBatchViaConcurrentEmbed(t *testing.T) {
	p := &stubEmbed{id: "a", resp: &ratatoskr.Embedding{Model: "m"}}
	out, err := dispatch.EmbedBatchViaConcurrentEmbed(context.Background(), p, []string{"x", "y", "z"}, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if p.calls != 3 {
		t.Errorf("expected 3 provider calls, got %d", p.calls)
	}
}
