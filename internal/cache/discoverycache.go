package cache

import (
	"sync"
	"time"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// DiscoveryCacheConfig configures a [DiscoveryCache].
type DiscoveryCacheConfig struct {
	// TTL bounds how long a discovered rejection is remembered before the
	// dispatcher is willing to try the parameter against that provider/model
	// again. Default: 1h.
	TTL time.Duration
}

func (c DiscoveryCacheConfig) normalize() DiscoveryCacheConfig {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	return c
}

type discoveryKey struct {
	providerID string
	modelID    string
	param      ratatoskr.ParameterName
}

type discoveryEntry struct {
	record    ratatoskr.DiscoveryRecord
	expiresAt time.Time
}

// DiscoveryCache records, per (provider, model, parameter), that a provider
// rejected a parameter at runtime (ErrUnsupportedParameter). The dispatcher
// records every such rejection, whether it comes from a provider or from the
// validator, and advances to the next chain entry each time; a repeat
// rejection is handled the same as the first, and the parameter is not
// stripped and retried. The validator consults the cache, so on later
// requests a recorded parameter is classified Unsupported for that target
// until the record expires.
//
// DiscoveryCache is safe for concurrent use.
type DiscoveryCache struct {
	mu       sync.RWMutex
	cfg      DiscoveryCacheConfig
	entries  map[discoveryKey]*discoveryEntry
	onInsert func(ratatoskr.DiscoveryRecord)
}

// DiscoveryCacheOption configures optional instrumentation hooks.
type DiscoveryCacheOption func(*DiscoveryCache)

// WithDiscoveryCounter registers a callback invoked whenever a genuinely new
// record is inserted (not on a refresh of an existing one), used to drive
// the ratatoskr.parameter_discoveries_total telemetry counter.
func WithDiscoveryCounter(fn func(ratatoskr.DiscoveryRecord)) DiscoveryCacheOption {
	return func(c *DiscoveryCache) { c.onInsert = fn }
}

// NewDiscoveryCache builds a [DiscoveryCache].
func NewDiscoveryCache(cfg DiscoveryCacheConfig, opts ...DiscoveryCacheOption) *DiscoveryCache {
	c := &DiscoveryCache{
		cfg:     cfg.normalize(),
		entries: make(map[discoveryKey]*discoveryEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Has reports whether providerID has a live (unexpired) rejection recorded
// for param against modelID.
func (c *DiscoveryCache) Has(providerID, modelID string, param ratatoskr.ParameterName) bool {
	c.mu.RLock()
	entry, ok := c.entries[discoveryKey{providerID, modelID, param}]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, discoveryKey{providerID, modelID, param})
		c.mu.Unlock()
		return false
	}
	return true
}

// Record inserts a discovery record, refreshing its TTL if one already
// exists for this key. It reports whether this was a first-occurrence insert
// (true) or a refresh of a still-live record (false). The dispatcher uses it
// only to decide whether to count a new discovery in telemetry; it advances
// the chain in both cases.
func (c *DiscoveryCache) Record(rec ratatoskr.DiscoveryRecord) (firstOccurrence bool) {
	key := discoveryKey{rec.ProviderID, rec.ModelID, rec.Parameter}

	c.mu.Lock()
	existing, ok := c.entries[key]
	wasLive := ok && time.Now().Before(existing.expiresAt)
	c.entries[key] = &discoveryEntry{
		record:    rec,
		expiresAt: rec.Timestamp.Add(c.cfg.TTL),
	}
	c.mu.Unlock()

	if !wasLive && c.onInsert != nil {
		c.onInsert(rec)
	}
	return !wasLive
}

// List returns all currently live discovery records, for diagnostics and
// introspection endpoints.
func (c *DiscoveryCache) List() []ratatoskr.DiscoveryRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	out := make([]ratatoskr.DiscoveryRecord, 0, len(c.entries))
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			out = append(out, e.record)
		}
	}
	return out
}

// Forget removes any recorded rejection for (providerID, modelID, param),
// letting the dispatcher retry the parameter on the next call.
func (c *DiscoveryCache) Forget(providerID, modelID string, param ratatoskr.ParameterName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, discoveryKey{providerID, modelID, param})
}
