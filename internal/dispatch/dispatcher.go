package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/emesal/ratatoskr/internal/cache"
	"github.com/emesal/ratatoskr/internal/registry"
	"github.com/emesal/ratatoskr/internal/resilience"
	"github.com/emesal/ratatoskr/internal/validate"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Dispatcher owns one ordered chain per capability plus the shared caches,
// registry, validator and retry decorator every chain walk consults. It is
// the sole concrete implementation behind the [ratatoskr.Gateway] facade.
type Dispatcher struct {
	deps     *Deps
	registry *registry.Registry

	chat           *Chain[ratatoskr.ChatProvider]
	chatStream     *Chain[ratatoskr.ChatStreamProvider]
	generate       *Chain[ratatoskr.GenerateProvider]
	generateStream *Chain[ratatoskr.GenerateStreamProvider]
	embed          *Chain[ratatoskr.EmbedProvider]
	embedBatch     *Chain[ratatoskr.EmbedBatchProvider]
	nli            *Chain[ratatoskr.NliProvider]
	nliBatch       *Chain[ratatoskr.NliBatchProvider]
	zeroShot       *Chain[ratatoskr.ZeroShotProvider]
	stance         *Chain[ratatoskr.StanceProvider]
	tokenize       *Chain[ratatoskr.TokenizeProvider]
	metadata       *Chain[ratatoskr.MetadataProvider]

	streamBufferSize int
	workarounds      map[string]*validate.Workarounds

	fetchGroup singleflight.Group
}

// New builds a Dispatcher with an empty chain for every capability.
// breakerCfg templates every provider's dedicated circuit breaker.
func New(deps *Deps, reg *registry.Registry, breakerCfg resilience.CircuitBreakerConfig, streamBufferSize int) *Dispatcher {
	if streamBufferSize <= 0 {
		streamBufferSize = DefaultStreamBufferSize
	}
	return &Dispatcher{
		deps:             deps,
		registry:         reg,
		chat:             NewChain[ratatoskr.ChatProvider](breakerCfg),
		chatStream:       NewChain[ratatoskr.ChatStreamProvider](breakerCfg),
		generate:         NewChain[ratatoskr.GenerateProvider](breakerCfg),
		generateStream:   NewChain[ratatoskr.GenerateStreamProvider](breakerCfg),
		embed:            NewChain[ratatoskr.EmbedProvider](breakerCfg),
		embedBatch:       NewChain[ratatoskr.EmbedBatchProvider](breakerCfg),
		nli:              NewChain[ratatoskr.NliProvider](breakerCfg),
		nliBatch:         NewChain[ratatoskr.NliBatchProvider](breakerCfg),
		zeroShot:         NewChain[ratatoskr.ZeroShotProvider](breakerCfg),
		stance:           NewChain[ratatoskr.StanceProvider](breakerCfg),
		tokenize:         NewChain[ratatoskr.TokenizeProvider](breakerCfg),
		metadata:         NewChain[ratatoskr.MetadataProvider](breakerCfg),
		streamBufferSize: streamBufferSize,
		workarounds:      make(map[string]*validate.Workarounds),
	}
}

// SetWorkarounds installs the chat-options workaround chain applied for
// every call routed to providerID, across Chat and ChatStream.
func (d *Dispatcher) SetWorkarounds(providerID string, w *validate.Workarounds) {
	d.workarounds[providerID] = w
}

// --- Registration ---------------------------------------------------------

func (d *Dispatcher) RegisterChat(p ratatoskr.ChatProvider, priority int) *resilience.CircuitBreaker {
	return d.chat.Register(p, priority)
}
func (d *Dispatcher) RegisterChatStream(p ratatoskr.ChatStreamProvider, priority int) *resilience.CircuitBreaker {
	return d.chatStream.Register(p, priority)
}
func (d *Dispatcher) RegisterGenerate(p ratatoskr.GenerateProvider, priority int) *resilience.CircuitBreaker {
	return d.generate.Register(p, priority)
}
func (d *Dispatcher) RegisterGenerateStream(p ratatoskr.GenerateStreamProvider, priority int) *resilience.CircuitBreaker {
	return d.generateStream.Register(p, priority)
}
func (d *Dispatcher) RegisterEmbed(p ratatoskr.EmbedProvider, priority int) *resilience.CircuitBreaker {
	return d.embed.Register(p, priority)
}
func (d *Dispatcher) RegisterEmbedBatch(p ratatoskr.EmbedBatchProvider, priority int) *resilience.CircuitBreaker {
	return d.embedBatch.Register(p, priority)
}
func (d *Dispatcher) RegisterNli(p ratatoskr.NliProvider, priority int) *resilience.CircuitBreaker {
	return d.nli.Register(p, priority)
}
func (d *Dispatcher) RegisterNliBatch(p ratatoskr.NliBatchProvider, priority int) *resilience.CircuitBreaker {
	return d.nliBatch.Register(p, priority)
}
func (d *Dispatcher) RegisterZeroShot(p ratatoskr.ZeroShotProvider, priority int) *resilience.CircuitBreaker {
	return d.zeroShot.Register(p, priority)
}
func (d *Dispatcher) RegisterStance(p ratatoskr.StanceProvider, priority int) *resilience.CircuitBreaker {
	return d.stance.Register(p, priority)
}
func (d *Dispatcher) RegisterTokenize(p ratatoskr.TokenizeProvider, priority int) *resilience.CircuitBreaker {
	return d.tokenize.Register(p, priority)
}
func (d *Dispatcher) RegisterMetadata(p ratatoskr.MetadataProvider, priority int) *resilience.CircuitBreaker {
	return d.metadata.Register(p, priority)
}

// ApplyRouting reorders every chain per cfg. Cost ordering uses the
// per-capability cost functions in cfg; a chain without one (including every
// chain from NLI onward, which has no cost field) is not cost-sorted.
func (d *Dispatcher) ApplyRouting(cfg RoutingConfig) {
	d.chat.ApplyRouting(cfg.Preferred, cfg.ByCost, cfg.ChatCost)
	d.chatStream.ApplyRouting(cfg.Preferred, cfg.ByCost, cfg.ChatStreamCost)
	d.generate.ApplyRouting(cfg.Preferred, cfg.ByCost, cfg.GenerateCost)
	d.generateStream.ApplyRouting(cfg.Preferred, cfg.ByCost, cfg.GenerateStreamCost)
	d.embed.ApplyRouting(cfg.Preferred, cfg.ByCost, cfg.EmbedCost)
	d.embedBatch.ApplyRouting(cfg.Preferred, cfg.ByCost, cfg.EmbedBatchCost)
	d.nli.ApplyRouting(cfg.Preferred, cfg.ByCost, nil)
	d.nliBatch.ApplyRouting(cfg.Preferred, cfg.ByCost, nil)
	d.zeroShot.ApplyRouting(cfg.Preferred, cfg.ByCost, nil)
	d.stance.ApplyRouting(cfg.Preferred, cfg.ByCost, nil)
	d.tokenize.ApplyRouting(cfg.Preferred, cfg.ByCost, nil)
	d.metadata.ApplyRouting(cfg.Preferred, cfg.ByCost, nil)
}

// RoutingConfig carries the preference/cost knobs applied across every
// chain. The *Cost functions are optional per-capability cost extractors
// (typically closing over the provider's configured default model and
// consulting the registry); nil disables cost-reordering for that chain
// even when ByCost is set.
type RoutingConfig struct {
	Preferred string
	ByCost    bool

	ChatCost           func(ratatoskr.ChatProvider) float64
	ChatStreamCost     func(ratatoskr.ChatStreamProvider) float64
	GenerateCost       func(ratatoskr.GenerateProvider) float64
	GenerateStreamCost func(ratatoskr.GenerateStreamProvider) float64
	EmbedCost          func(ratatoskr.EmbedProvider) float64
	EmbedBatchCost     func(ratatoskr.EmbedBatchProvider) float64
}

// --- Operations ------------------------------------------------------------

func (d *Dispatcher) Chat(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (*ratatoskr.ChatResponse, error) {
	req := Request{Capability: ratatoskr.CapabilityChat, ModelID: opts.Model, Params: validate.ChatParameters(opts)}
	return Dispatch(ctx, d.deps, d.chat, req, func(ctx context.Context, p ratatoskr.ChatProvider) (*ratatoskr.ChatResponse, error) {
		providerOpts, err := d.applyChatWorkarounds(p.ProviderID(), opts)
		if err != nil {
			return nil, err
		}
		return p.Chat(ctx, messages, tools, providerOpts)
	})
}

func (d *Dispatcher) ChatStream(ctx context.Context, messages []ratatoskr.Message, tools []ratatoskr.ToolDefinition, opts ratatoskr.ChatOptions) (<-chan ratatoskr.ChatEvent, error) {
	req := Request{Capability: ratatoskr.CapabilityChatStream, ModelID: opts.Model, Params: validate.ChatParameters(opts)}
	return DispatchStream(ctx, d.deps, d.chatStream, req, d.streamBufferSize, func(ctx context.Context, p ratatoskr.ChatStreamProvider) (<-chan ratatoskr.ChatEvent, error) {
		providerOpts, err := d.applyChatWorkarounds(p.ProviderID(), opts)
		if err != nil {
			return nil, err
		}
		return p.ChatStream(ctx, messages, tools, providerOpts)
	})
}

func (d *Dispatcher) Generate(ctx context.Context, prompt string, opts ratatoskr.GenerateOptions) (*ratatoskr.GenerateResponse, error) {
	req := Request{Capability: ratatoskr.CapabilityGenerate, ModelID: opts.Model, Params: validate.GenerateParameters(opts)}
	return Dispatch(ctx, d.deps, d.generate, req, func(ctx context.Context, p ratatoskr.GenerateProvider) (*ratatoskr.GenerateResponse, error) {
		return p.Generate(ctx, prompt, opts)
	})
}

func (d *Dispatcher) GenerateStream(ctx context.Context, prompt string, opts ratatoskr.GenerateOptions) (<-chan ratatoskr.GenerateEvent, error) {
	req := Request{Capability: ratatoskr.CapabilityGenerateStream, ModelID: opts.Model, Params: validate.GenerateParameters(opts)}
	return DispatchStream(ctx, d.deps, d.generateStream, req, d.streamBufferSize, func(ctx context.Context, p ratatoskr.GenerateStreamProvider) (<-chan ratatoskr.GenerateEvent, error) {
		return p.GenerateStream(ctx, prompt, opts)
	})
}

func (d *Dispatcher) Embed(ctx context.Context, text, model string) (*ratatoskr.Embedding, error) {
	req := Request{Capability: ratatoskr.CapabilityEmbed, ModelID: model}
	if cache.Cacheable(ratatoskr.CapabilityEmbed) {
		req.CacheKey = cache.Key(ratatoskr.CapabilityEmbed, model, text)
	}
	return Dispatch(ctx, d.deps, d.embed, req, func(ctx context.Context, p ratatoskr.EmbedProvider) (*ratatoskr.Embedding, error) {
		return p.Embed(ctx, text, model)
	})
}

func (d *Dispatcher) EmbedBatch(ctx context.Context, texts []string, model string) ([]ratatoskr.Embedding, error) {
	req := Request{Capability: ratatoskr.CapabilityEmbedBatch, ModelID: model}
	if cache.Cacheable(ratatoskr.CapabilityEmbedBatch) {
		req.CacheKey = cache.Key(ratatoskr.CapabilityEmbedBatch, model, texts)
	}
	return Dispatch(ctx, d.deps, d.embedBatch, req, func(ctx context.Context, p ratatoskr.EmbedBatchProvider) ([]ratatoskr.Embedding, error) {
		return p.EmbedBatch(ctx, texts, model)
	})
}

// EmbedBatchViaConcurrentEmbed serves an embed-batch request by fanning out
// individual Embed calls against p concurrently with an errgroup, for
// providers registered only as an EmbedProvider. Order of the result slice
// matches texts regardless of completion order.
func EmbedBatchViaConcurrentEmbed(ctx context.Context, p ratatoskr.EmbedProvider, texts []string, model string) ([]ratatoskr.Embedding, error) {
	out := make([]ratatoskr.Embedding, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		g.Go(func() error {
			e, err := p.Embed(gctx, text, model)
			if err != nil {
				return err
			}
			out[i] = *e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dispatcher) Nli(ctx context.Context, premise, hypothesis, model string) (*ratatoskr.NliResult, error) {
	req := Request{Capability: ratatoskr.CapabilityNli, ModelID: model}
	if cache.Cacheable(ratatoskr.CapabilityNli) {
		req.CacheKey = cache.Key(ratatoskr.CapabilityNli, model, [2]string{premise, hypothesis})
	}
	return Dispatch(ctx, d.deps, d.nli, req, func(ctx context.Context, p ratatoskr.NliProvider) (*ratatoskr.NliResult, error) {
		return p.Nli(ctx, premise, hypothesis, model)
	})
}

func (d *Dispatcher) NliBatch(ctx context.Context, pairs [][2]string, model string) ([]ratatoskr.NliResult, error) {
	req := Request{Capability: ratatoskr.CapabilityNliBatch, ModelID: model}
	if cache.Cacheable(ratatoskr.CapabilityNliBatch) {
		req.CacheKey = cache.Key(ratatoskr.CapabilityNliBatch, model, pairs)
	}
	return Dispatch(ctx, d.deps, d.nliBatch, req, func(ctx context.Context, p ratatoskr.NliBatchProvider) ([]ratatoskr.NliResult, error) {
		return p.NliBatch(ctx, pairs, model)
	})
}

func (d *Dispatcher) ZeroShot(ctx context.Context, text string, labels []string, model string) (*ratatoskr.ClassifyResult, error) {
	req := Request{Capability: ratatoskr.CapabilityZeroShot, ModelID: model}
	return Dispatch(ctx, d.deps, d.zeroShot, req, func(ctx context.Context, p ratatoskr.ZeroShotProvider) (*ratatoskr.ClassifyResult, error) {
		return p.ZeroShot(ctx, text, labels, model)
	})
}

func (d *Dispatcher) Stance(ctx context.Context, text, target, model string) (*ratatoskr.StanceResult, error) {
	req := Request{Capability: ratatoskr.CapabilityStance, ModelID: model}
	return Dispatch(ctx, d.deps, d.stance, req, func(ctx context.Context, p ratatoskr.StanceProvider) (*ratatoskr.StanceResult, error) {
		return p.Stance(ctx, text, target, model)
	})
}

func (d *Dispatcher) Tokenize(ctx context.Context, text, model string) ([]ratatoskr.Token, error) {
	req := Request{Capability: ratatoskr.CapabilityTokenize, ModelID: model}
	return Dispatch(ctx, d.deps, d.tokenize, req, func(ctx context.Context, p ratatoskr.TokenizeProvider) ([]ratatoskr.Token, error) {
		return p.Tokenize(ctx, text, model)
	})
}

func (d *Dispatcher) CountTokens(ctx context.Context, text, model string) (int, error) {
	req := Request{Capability: ratatoskr.CapabilityTokenize, ModelID: model}
	return Dispatch(ctx, d.deps, d.tokenize, req, func(ctx context.Context, p ratatoskr.TokenizeProvider) (int, error) {
		return p.CountTokens(ctx, text, model)
	})
}

// Metadata resolves model from the registry only — the synchronous path
// never calls a provider. Use [Dispatcher.FetchModelMetadata] to populate
// the ephemeral live layer from a provider's live Metadata capability.
func (d *Dispatcher) Metadata(model string) (ratatoskr.ModelMetadata, bool) {
	return d.registry.Lookup(model)
}

// FetchModelMetadata walks the metadata chain for model, recording the
// first successful result into the registry's ephemeral layer. Concurrent
// calls for the same model are collapsed into a single in-flight fetch via
// singleflight, so a burst of requests that all miss the registry at once
// doesn't stampede every metadata-capable provider.
func (d *Dispatcher) FetchModelMetadata(ctx context.Context, model string) (ratatoskr.ModelMetadata, error) {
	v, err, _ := d.fetchGroup.Do(model, func() (any, error) {
		req := Request{Capability: ratatoskr.CapabilityMetadata, ModelID: model}
		meta, err := Dispatch(ctx, d.deps, d.metadata, req, func(ctx context.Context, p ratatoskr.MetadataProvider) (*ratatoskr.ModelMetadata, error) {
			return p.Metadata(ctx, model)
		})
		if err != nil {
			return ratatoskr.ModelMetadata{}, err
		}
		d.registry.RecordLive(*meta)
		return *meta, nil
	})
	if err != nil {
		return ratatoskr.ModelMetadata{}, err
	}
	return v.(ratatoskr.ModelMetadata), nil
}

// WarmModels fetches metadata for every model in models concurrently,
// bounding total wall-clock time to the slowest single fetch rather than
// their sum. The returned map holds an entry only for each model whose
// fetch failed; WarmModels returns no error of its own, so a canceled ctx
// shows up as per-model errors in the map.
func (d *Dispatcher) WarmModels(ctx context.Context, models []string) map[string]error {
	results := make(map[string]error, len(models))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, model := range models {
		g.Go(func() error {
			_, err := d.FetchModelMetadata(gctx, model)
			if err != nil {
				mu.Lock()
				results[model] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ModelStatus reports model's current availability by resolving its
// registered provider's circuit breaker state across every capability chain
// the registry says that provider serves. The worst observed state wins: any
// open breaker makes the model Unavailable, any half-open probe makes it
// Loading, otherwise it is Ready. A model unknown to the registry reports
// Unavailable with reason "unknown model". A known model whose provider has
// no chain entry on any of its declared capabilities reports Available —
// nothing has been learned about it yet, but it hasn't been seen failing
// either.
func (d *Dispatcher) ModelStatus(model string) ratatoskr.ModelStatusResult {
	meta, ok := d.registry.Lookup(model)
	if !ok {
		return ratatoskr.ModelStatusResult{Status: ratatoskr.ModelUnavailable, Reason: "unknown model"}
	}

	sawEntry := false
	worst := ratatoskr.ModelReady
	for _, capability := range meta.Capabilities {
		state, found := d.breakerStateFor(capability, meta.ProviderID)
		if !found {
			continue
		}
		sawEntry = true
		switch state {
		case resilience.StateOpen:
			return ratatoskr.ModelStatusResult{
				Status: ratatoskr.ModelUnavailable,
				Reason: fmt.Sprintf("circuit breaker open for provider %q", meta.ProviderID),
			}
		case resilience.StateHalfOpen:
			worst = ratatoskr.ModelLoading
		}
	}
	if !sawEntry {
		return ratatoskr.ModelStatusResult{Status: ratatoskr.ModelAvailable}
	}
	return ratatoskr.ModelStatusResult{Status: worst}
}

// breakerStateFor looks up providerID's breaker state on the chain backing
// capability, if that provider is registered on it.
func (d *Dispatcher) breakerStateFor(capability ratatoskr.Capability, providerID string) (resilience.State, bool) {
	switch capability {
	case ratatoskr.CapabilityChat:
		return d.chat.BreakerState(providerID)
	case ratatoskr.CapabilityChatStream:
		return d.chatStream.BreakerState(providerID)
	case ratatoskr.CapabilityGenerate:
		return d.generate.BreakerState(providerID)
	case ratatoskr.CapabilityGenerateStream:
		return d.generateStream.BreakerState(providerID)
	case ratatoskr.CapabilityEmbed:
		return d.embed.BreakerState(providerID)
	case ratatoskr.CapabilityEmbedBatch:
		return d.embedBatch.BreakerState(providerID)
	case ratatoskr.CapabilityNli:
		return d.nli.BreakerState(providerID)
	case ratatoskr.CapabilityNliBatch:
		return d.nliBatch.BreakerState(providerID)
	case ratatoskr.CapabilityZeroShot:
		return d.zeroShot.BreakerState(providerID)
	case ratatoskr.CapabilityStance:
		return d.stance.BreakerState(providerID)
	case ratatoskr.CapabilityTokenize:
		return d.tokenize.BreakerState(providerID)
	case ratatoskr.CapabilityMetadata:
		return d.metadata.BreakerState(providerID)
	default:
		return resilience.StateClosed, false
	}
}

// Capabilities aggregates how many providers are registered per capability
// across every chain.
func (d *Dispatcher) Capabilities() ratatoskr.Capabilities {
	counts := map[ratatoskr.Capability]int{
		ratatoskr.CapabilityChat:           d.chat.Len(),
		ratatoskr.CapabilityChatStream:     d.chatStream.Len(),
		ratatoskr.CapabilityGenerate:       d.generate.Len(),
		ratatoskr.CapabilityGenerateStream: d.generateStream.Len(),
		ratatoskr.CapabilityEmbed:          d.embed.Len(),
		ratatoskr.CapabilityEmbedBatch:     d.embedBatch.Len(),
		ratatoskr.CapabilityNli:            d.nli.Len(),
		ratatoskr.CapabilityNliBatch:       d.nliBatch.Len(),
		ratatoskr.CapabilityZeroShot:       d.zeroShot.Len(),
		ratatoskr.CapabilityStance:         d.stance.Len(),
		ratatoskr.CapabilityTokenize:       d.tokenize.Len(),
		ratatoskr.CapabilityMetadata:       d.metadata.Len(),
	}
	return ratatoskr.Capabilities{Counts: counts}
}

func (d *Dispatcher) applyChatWorkarounds(providerID string, opts ratatoskr.ChatOptions) (ratatoskr.ChatOptions, error) {
	w, ok := d.workarounds[providerID]
	if !ok {
		return opts, nil
	}
	out, err := w.Apply(opts)
	if err != nil {
		return opts, fmt.Errorf("dispatch: workaround for %q: %w", providerID, err)
	}
	return out, nil
}
