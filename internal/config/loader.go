package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// KnownCapabilities lists the wire-form capability names accepted in a
// ProviderEntry.Capabilities list. Used by [Validate] to catch typos early.
var KnownCapabilities = []string{
	"chat", "chat_stream", "generate", "generate_stream",
	"embed", "embed_batch", "nli", "nli_batch",
	"zero_shot", "stance", "tokenize", "metadata",
}

// ValidProviderNames lists known constructor names, used by [Validate] to
// warn (not fail) about unrecognised provider names — third-party
// constructors registered at runtime are not visible here.
var ValidProviderNames = []string{
	"openai", "anyllm", "openai-embed", "ollama-embed", "localstream", "mock",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if !cfg.Validation.IsValid() {
		errs = append(errs, fmt.Errorf("validation_policy %q is invalid; valid values: warn, error, ignore", cfg.Validation))
	}

	if cfg.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry.max_attempts must be >= 0"))
	}
	if cfg.Retry.BackoffMultiplier != 0 && cfg.Retry.BackoffMultiplier <= 1 {
		errs = append(errs, errors.New("retry.backoff_multiplier must be > 1"))
	}
	if cfg.Retry.JitterFraction < 0 || cfg.Retry.JitterFraction > 1 {
		errs = append(errs, errors.New("retry.jitter_fraction must be in [0, 1]"))
	}

	idsSeen := make(map[string]int, len(cfg.Providers))
	for i, p := range cfg.Providers {
		prefix := fmt.Sprintf("providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else if !slices.Contains(ValidProviderNames, p.Name) {
			slog.Warn("unknown provider name — may be a typo or third-party provider",
				"name", p.Name, "known", ValidProviderNames)
		}

		id := p.ID
		if id == "" {
			id = p.Name
		}
		if id != "" {
			if prev, ok := idsSeen[id]; ok {
				errs = append(errs, fmt.Errorf("%s: id %q is a duplicate of providers[%d]; set an explicit id", prefix, id, prev))
			}
			idsSeen[id] = i
		}

		if len(p.Capabilities) == 0 {
			errs = append(errs, fmt.Errorf("%s.capabilities must list at least one capability", prefix))
		}
		for _, c := range p.Capabilities {
			if !slices.Contains(KnownCapabilities, c) {
				errs = append(errs, fmt.Errorf("%s.capabilities contains unknown capability %q", prefix, c))
			}
		}
	}

	if len(cfg.Providers) == 0 {
		slog.Warn("no providers configured; the gateway will reject every request with ErrNoProvider")
	}

	return errors.Join(errs...)
}
