package ratatoskr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emesal/ratatoskr/internal/cache"
	"github.com/emesal/ratatoskr/internal/config"
	"github.com/emesal/ratatoskr/internal/dispatch"
	"github.com/emesal/ratatoskr/internal/health"
	"github.com/emesal/ratatoskr/internal/registry"
	"github.com/emesal/ratatoskr/internal/resilience"
	"github.com/emesal/ratatoskr/internal/telemetry"
	"github.com/emesal/ratatoskr/internal/validate"
)

// Builder assembles a [Gateway] from a [config.Config] and a populated
// [config.Registry] of provider constructors. It owns the wiring between the
// ambient infrastructure (caches, retry, circuit breakers, validation,
// metrics) and the per-capability dispatch chains; callers only need to
// register their provider adapters' constructors before calling Build.
//
//	providers := config.NewRegistry()
//	providers.RegisterChat("openai", func(e config.ProviderEntry) (ratatoskr.ChatProvider, error) {
//		return openai.New(openai.Config{ID: e.ID, APIKey: e.APIKey, DefaultModel: e.Model})
//	})
//	gw, health, err := ratatoskr.NewBuilder(cfg, providers).Build(ctx)
type Builder struct {
	cfg       *config.Config
	providers *config.Registry
	logger    *slog.Logger
	metrics   *telemetry.Metrics
}

// NewBuilder returns a Builder for cfg, using providers as the source of
// provider constructors for every entry in cfg.Providers.
func NewBuilder(cfg *config.Config, providers *config.Registry) *Builder {
	return &Builder{cfg: cfg, providers: providers, logger: slog.Default()}
}

// WithLogger overrides the logger used for build-time diagnostics (unknown
// capability entries, registry load failures). Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetrics wires m into the retry decorator and dispatcher so every
// dispatch records request/cache/retry/discovery counters. Omit to build a
// Gateway with no telemetry emission.
func (b *Builder) WithMetrics(m *telemetry.Metrics) *Builder {
	b.metrics = m
	return b
}

// Build assembles the Gateway and its companion health handler. The
// returned health.Handler reports one readiness checker per non-empty
// capability chain (healthy when at least one registered provider's circuit
// breaker is not open) plus a "model_registry" checker that always reports
// healthy; registry staleness is not checked.
func (b *Builder) Build(ctx context.Context) (*Gateway, *health.Handler, error) {
	reg := registry.New()
	var closers []func() error

	if pg := b.cfg.Remote.PostgresDSN; pg != "" {
		source, err := registry.NewPostgresSource(ctx, pg)
		if err != nil {
			return nil, nil, fmt.Errorf("ratatoskr: connect remote registry: %w", err)
		}
		closers = append(closers, func() error { source.Close(); return nil })
		snap, err := source.Load(ctx)
		if err != nil {
			b.logger.Warn("remote registry load failed; continuing on seed layer", "error", err)
		} else {
			reg.LoadCached(snap)
		}
	} else if loc := b.cfg.Remote.SnapshotPath; loc != "" {
		snap, err := registry.LoadSnapshot(loc)
		if err != nil {
			b.logger.Warn("snapshot registry load failed; continuing on seed layer", "error", err)
		} else {
			reg.LoadCached(snap)
			if b.cfg.Remote.CachePath != "" {
				if err := registry.SaveSnapshot(b.cfg.Remote.CachePath, snap); err != nil {
					b.logger.Warn("failed to persist fetched snapshot to cache path", "error", err)
				}
			}
		}
	}

	var responseCache *cache.ResponseCache
	if b.cfg.ResponseCache.Enabled {
		responseCache = cache.NewResponseCache(cache.ResponseCacheConfig{
			MaxEntries: b.cfg.ResponseCache.MaxEntries,
			TTL:        b.cfg.ResponseCache.TTL.Dur(),
		})
	}

	discoveryCache := cache.NewDiscoveryCache(cache.DiscoveryCacheConfig{
		TTL: b.cfg.Discovery.TTL.Dur(),
	})

	validator := validate.New(reg, discoveryCache, b.cfg.Validation.ToRatatoskr(), b.logger)

	retryCfg := resilience.RetryConfig{
		MaxAttempts:       b.cfg.Retry.MaxAttempts,
		InitialDelay:      b.cfg.Retry.InitialDelay.Dur(),
		MaxDelay:          b.cfg.Retry.MaxDelay.Dur(),
		BackoffMultiplier: b.cfg.Retry.BackoffMultiplier,
		JitterFraction:    b.cfg.Retry.JitterFraction,
	}
	if b.cfg.Retry.RespectRetryAfter != nil {
		retryCfg.RespectRetryAfter = *b.cfg.Retry.RespectRetryAfter
	} else {
		retryCfg.RespectRetryAfter = resilience.DefaultRetryConfig().RespectRetryAfter
	}
	if b.metrics != nil {
		retryCfg.OnRetry = func(providerID string, attempt int) {
			b.metrics.RecordRetry(context.Background(), providerID)
		}
	}
	retry := resilience.NewRetry(retryCfg)

	deps := &dispatch.Deps{
		ResponseCache: responseCache,
		Discovery:     discoveryCache,
		Validator:     validator,
		Retry:         retry,
		Metrics:       b.metrics,
	}

	breakerCfg := resilience.CircuitBreakerConfig{}
	dispatcher := dispatch.New(deps, reg, breakerCfg, 0)
	dispatcher.ApplyRouting(dispatch.RoutingConfig{
		Preferred: b.cfg.Routing.Preferred,
		ByCost:    b.cfg.Routing.ByCost,
	})

	registrars := map[string]func(config.ProviderEntry) (*resilience.CircuitBreaker, error){
		"chat": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateChat(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterChat(p, e.Priority), nil
		},
		"chat_stream": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateChatStream(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterChatStream(p, e.Priority), nil
		},
		"generate": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateGenerate(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterGenerate(p, e.Priority), nil
		},
		"generate_stream": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateGenerateStream(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterGenerateStream(p, e.Priority), nil
		},
		"embed": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateEmbed(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterEmbed(p, e.Priority), nil
		},
		"embed_batch": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateEmbedBatch(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterEmbedBatch(p, e.Priority), nil
		},
		"nli": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateNli(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterNli(p, e.Priority), nil
		},
		"nli_batch": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateNliBatch(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterNliBatch(p, e.Priority), nil
		},
		"zero_shot": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateZeroShot(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterZeroShot(p, e.Priority), nil
		},
		"stance": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateStance(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterStance(p, e.Priority), nil
		},
		"tokenize": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateTokenize(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterTokenize(p, e.Priority), nil
		},
		"metadata": func(e config.ProviderEntry) (*resilience.CircuitBreaker, error) {
			p, err := b.providers.CreateMetadata(e)
			if err != nil {
				return nil, err
			}
			return dispatcher.RegisterMetadata(p, e.Priority), nil
		},
	}

	breakers := make(map[string][]*resilience.CircuitBreaker)
	for _, entry := range b.cfg.Providers {
		if entry.ID == "" {
			entry.ID = entry.Name
		}
		for _, capName := range entry.Capabilities {
			registrar, ok := registrars[capName]
			if !ok {
				b.logger.Warn("skipping unknown capability in provider entry", "provider", entry.ID, "capability", capName)
				continue
			}
			cb, err := registrar(entry)
			if err != nil {
				return nil, nil, fmt.Errorf("ratatoskr: create %s/%s provider %q: %w", entry.Name, capName, entry.ID, err)
			}
			breakers[capName] = append(breakers[capName], cb)
		}
	}
	dispatcher.ApplyRouting(dispatch.RoutingConfig{
		Preferred: b.cfg.Routing.Preferred,
		ByCost:    b.cfg.Routing.ByCost,
	})

	checkers := []health.Checker{
		{Name: "model_registry", Check: func(ctx context.Context) error { return nil }},
	}
	for capName, cbs := range breakers {
		cbs := cbs
		checkers = append(checkers, health.Checker{
			Name: capName,
			Check: func(ctx context.Context) error {
				for _, cb := range cbs {
					if cb.State() != resilience.StateOpen {
						return nil
					}
				}
				return fmt.Errorf("every registered provider's circuit breaker is open")
			},
		})
	}

	gw := &Gateway{dispatcher: dispatcher, registry: reg, closers: closers}
	return gw, health.New(checkers...), nil
}
