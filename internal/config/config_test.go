package config_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emesal/ratatoskr/internal/config"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

validation_policy: warn
request_timeout: 120s

providers:
  - id: openai-primary
    name: openai
    api_key: sk-test
    model: gpt-4o
    capabilities: [chat, chat_stream]
    priority: 0
  - id: anyllm-fallback
    name: anyllm
    api_key: sk-test2
    model: claude-sonnet
    capabilities: [chat]
    priority: 1

retry:
  max_attempts: 3
  initial_delay: 100ms
  max_delay: 10s
  backoff_multiplier: 2.0
  jitter_fraction: 0.1
  respect_retry_after: true

routing:
  preferred: openai-primary

response_cache:
  enabled: true
  max_entries: 5000
  ttl: 10m

discovery:
  ttl: 1h
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("providers: got %d, want 2", len(cfg.Providers))
	}
	if cfg.Providers[0].Name != "openai" {
		t.Errorf("providers[0].name: got %q, want %q", cfg.Providers[0].Name, "openai")
	}
	if cfg.Retry.InitialDelay.Dur().String() != "100ms" {
		t.Errorf("retry.initial_delay: got %v", cfg.Retry.InitialDelay.Dur())
	}
	if cfg.ResponseCache.MaxEntries != 5000 {
		t.Errorf("response_cache.max_entries: got %d, want 5000", cfg.ResponseCache.MaxEntries)
	}
	if cfg.Routing.Preferred != "openai-primary" {
		t.Errorf("routing.preferred: got %q", cfg.Routing.Preferred)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
	if cfg.Server.LogLevel != "" {
		t.Errorf("expected empty log level, got %q", cfg.Server.LogLevel)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidValidationPolicy(t *testing.T) {
	yaml := `
validation_policy: yolo
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid validation_policy, got nil")
	}
}

func TestValidate_MissingProviderName(t *testing.T) {
	yaml := `
providers:
  - capabilities: [chat]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing provider name, got nil")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("error should mention name, got: %v", err)
	}
}

func TestValidate_MissingCapabilities(t *testing.T) {
	yaml := `
providers:
  - name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing capabilities, got nil")
	}
	if !strings.Contains(err.Error(), "capabilities") {
		t.Errorf("error should mention capabilities, got: %v", err)
	}
}

func TestValidate_UnknownCapability(t *testing.T) {
	yaml := `
providers:
  - name: openai
    capabilities: [telepathy]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown capability, got nil")
	}
}

func TestValidate_DuplicateProviderID(t *testing.T) {
	yaml := `
providers:
  - name: openai
    capabilities: [chat]
  - name: openai
    capabilities: [chat_stream]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate provider id, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_InvalidBackoffMultiplier(t *testing.T) {
	yaml := `
retry:
  backoff_multiplier: 0.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for backoff_multiplier <= 1, got nil")
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownChat(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateChat(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownEmbed(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateEmbed(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_RegisteredChat(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubChat{}
	reg.RegisterChat("stub", func(e config.ProviderEntry) (ratatoskr.ChatProvider, error) {
		return want, nil
	})
	got, err := reg.CreateChat(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_RegisteredEmbed(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubEmbed{}
	reg.RegisterEmbed("stub", func(e config.ProviderEntry) (ratatoskr.EmbedProvider, error) {
		return want, nil
	})
	got, err := reg.CreateEmbed(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterChat("broken", func(e config.ProviderEntry) (ratatoskr.ChatProvider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateChat(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

// ── Stub implementations (satisfy interfaces for the compiler) ────────────────

type stubChat struct{}

func (s *stubChat) ProviderID() string { return "stub" }
func (s *stubChat) Chat(_ context.Context, _ []ratatoskr.Message, _ []ratatoskr.ToolDefinition, _ ratatoskr.ChatOptions) (*ratatoskr.ChatResponse, error) {
	return &ratatoskr.ChatResponse{}, nil
}

type stubEmbed struct{}

func (s *stubEmbed) ProviderID() string { return "stub" }
func (s *stubEmbed) Embed(_ context.Context, _ string, _ string) (*ratatoskr.Embedding, error) {
	return &ratatoskr.Embedding{}, nil
}
