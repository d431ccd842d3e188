// Command ratatoskrd is the main entry point for the Ratatoskr LLM gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emesal/ratatoskr/internal/config"
	"github.com/emesal/ratatoskr/internal/telemetry"
	"github.com/emesal/ratatoskr/pkg/provider/anyllm"
	"github.com/emesal/ratatoskr/pkg/provider/localstream"
	"github.com/emesal/ratatoskr/pkg/provider/mock"
	"github.com/emesal/ratatoskr/pkg/provider/ollamaembed"
	"github.com/emesal/ratatoskr/pkg/provider/openai"
	"github.com/emesal/ratatoskr/pkg/provider/openaiembed"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ratatoskrd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ratatoskrd: %v\n", err)
		}
		return 1
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(cfg.Server.LogLevel.Slog())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("ratatoskrd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"providers", len(cfg.Providers),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Provider entries, retry/cache sizing, and remote registry wiring
	// require rebuilding the dispatcher, so only the safe subset of a
	// reload — log level — is applied live; anything else just logs what
	// changed and waits for a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, updated *config.Config) {
		diff := config.Diff(old, updated)
		if diff.LogLevelChanged {
			levelVar.Set(diff.NewLogLevel.Slog())
		}
		slog.Info("config file changed", "log_level_changed", diff.LogLevelChanged,
			"validation_changed", diff.ValidationChanged, "routing_changed", diff.RoutingChanged,
			"request_timeout_changed", diff.RequestTimeoutChanged)
		if diff.Any() && !diff.LogLevelChanged {
			slog.Warn("config change requires a restart to take effect")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	shutdownTelemetry, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{ServiceName: "ratatoskrd"})
	if err != nil {
		slog.Error("failed to initialize telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	metrics := telemetry.DefaultMetrics()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	gw, healthHandler, err := ratatoskr.NewBuilder(cfg, reg).
		WithLogger(logger).
		WithMetrics(metrics).
		Build(ctx)
	if err != nil {
		slog.Error("failed to build gateway", "err", err)
		return 1
	}
	defer func() {
		if err := gw.Close(); err != nil {
			slog.Error("gateway close error", "err", err)
		}
	}()

	mux := http.NewServeMux()
	healthHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}
	serveErrs := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "listen_addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrs <- err
			return
		}
		serveErrs <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
	case err := <-serveErrs:
		if err != nil {
			slog.Error("server error", "err", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires every concrete provider package's
// constructor into reg under the names listed in
// [config.ValidProviderNames]. This is the only place in the module allowed
// to import both pkg/ratatoskr and pkg/provider/*.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterChat("openai", func(e config.ProviderEntry) (ratatoskr.ChatProvider, error) {
		return openai.New(openai.Config{
			ID:           e.ID,
			APIKey:       e.APIKey,
			BaseURL:      e.BaseURL,
			Organization: optionString(e.Options, "organization"),
			DefaultModel: e.Model,
		})
	})
	reg.RegisterChatStream("openai", func(e config.ProviderEntry) (ratatoskr.ChatStreamProvider, error) {
		return openai.New(openai.Config{
			ID:           e.ID,
			APIKey:       e.APIKey,
			BaseURL:      e.BaseURL,
			Organization: optionString(e.Options, "organization"),
			DefaultModel: e.Model,
		})
	})

	reg.RegisterEmbed("openai-embed", func(e config.ProviderEntry) (ratatoskr.EmbedProvider, error) {
		return openaiembed.New(openaiembed.Config{
			ID:           e.ID,
			APIKey:       e.APIKey,
			BaseURL:      e.BaseURL,
			DefaultModel: e.Model,
		})
	})
	reg.RegisterEmbedBatch("openai-embed", func(e config.ProviderEntry) (ratatoskr.EmbedBatchProvider, error) {
		return openaiembed.New(openaiembed.Config{
			ID:           e.ID,
			APIKey:       e.APIKey,
			BaseURL:      e.BaseURL,
			DefaultModel: e.Model,
		})
	})

	reg.RegisterEmbed("ollama-embed", func(e config.ProviderEntry) (ratatoskr.EmbedProvider, error) {
		return ollamaembed.New(ollamaembed.Config{
			ID:           e.ID,
			BaseURL:      e.BaseURL,
			DefaultModel: e.Model,
		})
	})
	reg.RegisterEmbedBatch("ollama-embed", func(e config.ProviderEntry) (ratatoskr.EmbedBatchProvider, error) {
		return ollamaembed.New(ollamaembed.Config{
			ID:           e.ID,
			BaseURL:      e.BaseURL,
			DefaultModel: e.Model,
		})
	})

	reg.RegisterChat("anyllm", func(e config.ProviderEntry) (ratatoskr.ChatProvider, error) {
		return newAnyllm(e)
	})
	reg.RegisterChatStream("anyllm", func(e config.ProviderEntry) (ratatoskr.ChatStreamProvider, error) {
		return newAnyllm(e)
	})
	reg.RegisterGenerate("anyllm", func(e config.ProviderEntry) (ratatoskr.GenerateProvider, error) {
		return newAnyllm(e)
	})
	reg.RegisterGenerateStream("anyllm", func(e config.ProviderEntry) (ratatoskr.GenerateStreamProvider, error) {
		return newAnyllm(e)
	})

	reg.RegisterChat("localstream", func(e config.ProviderEntry) (ratatoskr.ChatProvider, error) {
		return localstream.New(localstream.Config{ID: e.ID, URL: e.BaseURL, DefaultModel: e.Model})
	})
	reg.RegisterChatStream("localstream", func(e config.ProviderEntry) (ratatoskr.ChatStreamProvider, error) {
		return localstream.New(localstream.Config{ID: e.ID, URL: e.BaseURL, DefaultModel: e.Model})
	})

	reg.RegisterChat("mock", func(e config.ProviderEntry) (ratatoskr.ChatProvider, error) {
		return &mock.Provider{ID: e.ID}, nil
	})
	reg.RegisterChatStream("mock", func(e config.ProviderEntry) (ratatoskr.ChatStreamProvider, error) {
		return &mock.Provider{ID: e.ID}, nil
	})
	reg.RegisterEmbed("mock", func(e config.ProviderEntry) (ratatoskr.EmbedProvider, error) {
		return &mock.Provider{ID: e.ID}, nil
	})
	reg.RegisterEmbedBatch("mock", func(e config.ProviderEntry) (ratatoskr.EmbedBatchProvider, error) {
		return &mock.Provider{ID: e.ID}, nil
	})
}

// newAnyllm builds an anyllm.Provider from a ProviderEntry's "backend" option,
// which names one of any-llm-go's supported backends (openai, anthropic,
// gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile).
func newAnyllm(e config.ProviderEntry) (*anyllm.Provider, error) {
	return anyllm.New(anyllm.Config{
		ID:           e.ID,
		Backend:      optionString(e.Options, "backend"),
		DefaultModel: e.Model,
		APIKey:       e.APIKey,
		BaseURL:      e.BaseURL,
	})
}

func optionString(opts map[string]any, key string) string {
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
