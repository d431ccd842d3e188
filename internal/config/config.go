// Package config provides the configuration schema, loader, and provider
// registry for the Ratatoskr gateway.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Config is the root configuration structure for the gateway.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Providers     []ProviderEntry     `yaml:"providers"`
	Retry         RetryConfig         `yaml:"retry"`
	Routing       RoutingConfig       `yaml:"routing"`
	ResponseCache ResponseCacheConfig `yaml:"response_cache"`
	Discovery     DiscoveryConfig     `yaml:"discovery"`
	Remote        RemoteRegistryConfig `yaml:"remote_registry"`

	// RequestTimeout bounds a single gateway operation end-to-end, across
	// every fallback attempt. Default: 120s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// Validation selects how the validator treats a request parameter the
	// registry does not recognize as mutable for the target model.
	// Valid values: "warn" (default), "error", "ignore".
	Validation ValidationPolicy `yaml:"validation_policy"`
}

// ServerConfig holds network and logging settings for the gateway's HTTP
// surface (health checks and, when enabled, the admin/introspection API).
type ServerConfig struct {
	// ListenAddr is the TCP address the health/admin server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`
}

// LogLevel is one of the four valid slog levels accepted in configuration.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is one of the known log levels, or empty (which
// callers treat as "use the default").
func (l LogLevel) IsValid() bool {
	switch l {
	case "", LogDebug, LogInfo, LogWarn, LogError:
		return true
	default:
		return false
	}
}

// Slog converts l to a [slog.Level], defaulting to [slog.LevelInfo] for the
// empty value.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidationPolicy mirrors ratatoskr.ValidationPolicy in a YAML-friendly
// string form; [ValidationPolicy.ToRatatoskr] converts it to the runtime enum.
type ValidationPolicy string

const (
	ValidationWarn   ValidationPolicy = "warn"
	ValidationError  ValidationPolicy = "error"
	ValidationIgnore ValidationPolicy = "ignore"
)

// IsValid reports whether p is a known policy, or empty.
func (p ValidationPolicy) IsValid() bool {
	switch p {
	case "", ValidationWarn, ValidationError, ValidationIgnore:
		return true
	default:
		return false
	}
}

// ToRatatoskr converts p to the gateway's runtime enum, defaulting the empty
// value to [ratatoskr.ValidationWarn].
func (p ValidationPolicy) ToRatatoskr() ratatoskr.ValidationPolicy {
	switch p {
	case ValidationError:
		return ratatoskr.ValidationError
	case ValidationIgnore:
		return ratatoskr.ValidationIgnore
	default:
		return ratatoskr.ValidationWarn
	}
}

// ProviderEntry configures one provider adapter instance participating in
// one or more capability chains. The Name field selects the constructor
// registered in the [Registry]; Capabilities lists which chains this entry
// is inserted into (e.g. "chat", "chat_stream", "embed").
type ProviderEntry struct {
	// ID uniquely identifies this entry across the config (defaults to Name
	// if empty, but must be set explicitly when the same Name appears more
	// than once, e.g. two differently-configured "openai" entries).
	ID string `yaml:"id"`

	// Name selects the registered provider constructor (e.g. "openai", "anyllm").
	Name string `yaml:"name"`

	// Capabilities lists the capability chains this entry participates in,
	// using the lowercase wire form of ratatoskr.Capability (e.g. "chat",
	// "chat_stream", "embed", "embed_batch").
	Capabilities []string `yaml:"capabilities"`

	// Priority orders entries within a capability's chain; lower values are
	// tried first. Entries with equal priority keep config file order.
	Priority int `yaml:"priority"`

	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects the default model used when a gateway call does not
	// specify one explicitly.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration not covered above.
	Options map[string]any `yaml:"options"`
}

// RetryConfig is the YAML-facing mirror of resilience.RetryConfig.
type RetryConfig struct {
	MaxAttempts       int      `yaml:"max_attempts"`
	InitialDelay      Duration `yaml:"initial_delay"`
	MaxDelay          Duration `yaml:"max_delay"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
	JitterFraction    float64  `yaml:"jitter_fraction"`
	RespectRetryAfter *bool    `yaml:"respect_retry_after"`
}

// RoutingConfig controls how the dispatcher orders a capability's provider
// chain before walking it.
type RoutingConfig struct {
	// Preferred, if set, moves the named provider ID to the front of every
	// chain it appears in, ahead of configured priority order.
	Preferred string `yaml:"preferred"`

	// ByCost, when true, enables cost ordering for chains that have a cost
	// function (see dispatch.RoutingConfig). The gateway Builder supplies no
	// cost functions, so chains it builds keep their priority order and
	// registry pricing is not consulted.
	ByCost bool `yaml:"by_cost"`
}

// ResponseCacheConfig is the YAML-facing mirror of cache.ResponseCacheConfig.
type ResponseCacheConfig struct {
	Enabled    bool     `yaml:"enabled"`
	MaxEntries int      `yaml:"max_entries"`
	TTL        Duration `yaml:"ttl"`
}

// DiscoveryConfig is the YAML-facing mirror of cache.DiscoveryCacheConfig.
type DiscoveryConfig struct {
	TTL Duration `yaml:"ttl"`
}

// RemoteRegistryConfig points at an optional remote model-metadata snapshot,
// either a JSON file/URL or a Postgres table, merged over the compiled-in
// seed registry. Leave both empty to run on the seed registry alone.
type RemoteRegistryConfig struct {
	// SnapshotPath is a local path or http(s) URL to a versioned JSON
	// snapshot (see internal/registry for the schema).
	SnapshotPath string `yaml:"snapshot_path"`

	// CachePath is where a fetched remote snapshot is written so a later
	// startup can load it without network access.
	CachePath string `yaml:"cache_path"`

	// PostgresDSN, if set, loads the remote snapshot from a Postgres table
	// instead of SnapshotPath.
	PostgresDSN string `yaml:"postgres_dsn"`

	// PollInterval controls how often a background refresh re-fetches the
	// snapshot. Zero disables background refresh.
	PollInterval Duration `yaml:"poll_interval"`
}

// Duration wraps time.Duration to accept Go duration strings ("100ms", "1h30m")
// in YAML, since yaml.v3 has no native support for the format.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Dur returns the time.Duration value.
func (d Duration) Dur() time.Duration { return time.Duration(d) }
