package config

// ConfigDiff describes what changed between two configs.
// Only fields that are safe to apply without a process restart are tracked —
// provider entries, retry/cache sizing, and remote registry wiring all
// require rebuilding the dispatcher and are intentionally excluded here; a
// reload that touches them should restart the process instead.
type ConfigDiff struct {
	LogLevelChanged    bool
	NewLogLevel        LogLevel
	ValidationChanged  bool
	NewValidation      ValidationPolicy
	RequestTimeoutChanged bool
	NewRequestTimeout  Duration
	RoutingChanged     bool
	NewRouting         RoutingConfig
}

// Diff compares old and new configs and returns what changed among the
// fields safe to hot-reload.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Validation != new.Validation {
		d.ValidationChanged = true
		d.NewValidation = new.Validation
	}
	if old.RequestTimeout != new.RequestTimeout {
		d.RequestTimeoutChanged = true
		d.NewRequestTimeout = new.RequestTimeout
	}
	if old.Routing != new.Routing {
		d.RoutingChanged = true
		d.NewRouting = new.Routing
	}

	return d
}

// Any reports whether the diff carries at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ValidationChanged || d.RequestTimeoutChanged || d.RoutingChanged
}
