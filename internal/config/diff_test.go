package config_test

import (
	"testing"
	"time"

	"github.com/emesal/ratatoskr/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:     config.ServerConfig{LogLevel: config.LogInfo},
		Validation: config.ValidationWarn,
	}
	d := config.Diff(cfg, cfg)
	if d.Any() {
		t.Error("expected no changes for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_ValidationPolicyChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Validation: config.ValidationWarn}
	new := &config.Config{Validation: config.ValidationError}

	d := config.Diff(old, new)
	if !d.ValidationChanged {
		t.Error("expected ValidationChanged=true")
	}
	if d.NewValidation != config.ValidationError {
		t.Errorf("expected NewValidation=error, got %q", d.NewValidation)
	}
}

func TestDiff_RequestTimeoutChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{RequestTimeout: config.Duration(60 * time.Second)}
	new := &config.Config{RequestTimeout: config.Duration(120 * time.Second)}

	d := config.Diff(old, new)
	if !d.RequestTimeoutChanged {
		t.Error("expected RequestTimeoutChanged=true")
	}
	if d.NewRequestTimeout.Dur() != 120*time.Second {
		t.Errorf("expected NewRequestTimeout=120s, got %v", d.NewRequestTimeout.Dur())
	}
}

func TestDiff_RoutingChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Routing: config.RoutingConfig{Preferred: "openai"}}
	new := &config.Config{Routing: config.RoutingConfig{Preferred: "anyllm"}}

	d := config.Diff(old, new)
	if !d.RoutingChanged {
		t.Error("expected RoutingChanged=true")
	}
	if d.NewRouting.Preferred != "anyllm" {
		t.Errorf("expected NewRouting.Preferred=anyllm, got %q", d.NewRouting.Preferred)
	}
}

func TestDiff_ProviderEntriesNotTracked(t *testing.T) {
	t.Parallel()
	// Provider wiring changes require a dispatcher rebuild, not a hot
	// reload, so Diff intentionally ignores them.
	old := &config.Config{Providers: []config.ProviderEntry{{Name: "openai", Capabilities: []string{"chat"}}}}
	new := &config.Config{Providers: []config.ProviderEntry{{Name: "anyllm", Capabilities: []string{"chat"}}}}

	d := config.Diff(old, new)
	if d.Any() {
		t.Error("expected Diff to ignore provider entry changes")
	}
}
