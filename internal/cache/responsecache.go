// Package cache implements two in-process, TTL-bounded caches: a response
// cache for deterministic capability calls, and a discovery cache recording
// runtime-learned parameter rejections.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// cacheableCapabilities is the set of capabilities whose output depends only
// on (model, input) and is therefore safe to cache. Chat and Generate are
// excluded even with temperature=0 — providers are not guaranteed
// deterministic, and tool-augmented calls may have side effects.
var cacheableCapabilities = map[ratatoskr.Capability]bool{
	ratatoskr.CapabilityEmbed:      true,
	ratatoskr.CapabilityEmbedBatch: true,
	ratatoskr.CapabilityNli:        true,
	ratatoskr.CapabilityNliBatch:   true,
}

// Cacheable reports whether cap is eligible for the response cache.
func Cacheable(cap ratatoskr.Capability) bool {
	return cacheableCapabilities[cap]
}

// ResponseCacheConfig configures a [ResponseCache].
type ResponseCacheConfig struct {
	// MaxEntries bounds the cache size; the least-recently-used entry is
	// evicted once it is exceeded. Default: 10000.
	MaxEntries int
	// TTL is how long an entry remains valid after insertion. Default: 10m.
	TTL time.Duration
}

func (c ResponseCacheConfig) normalize() ResponseCacheConfig {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 10000
	}
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	return c
}

type responseEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// ResponseCache is an LRU+TTL cache keyed on a digest of
// (capability, model, canonical input). It is safe for concurrent use.
type ResponseCache struct {
	mu       sync.Mutex
	cfg      ResponseCacheConfig
	items    map[string]*list.Element
	order    *list.List // front = most recently used
	hits     int64
	misses   int64
	onHit    func()
	onMiss   func()
	onInsert func()
}

// ResponseCacheOption configures optional instrumentation hooks.
type ResponseCacheOption func(*ResponseCache)

// WithHitCounter registers a callback invoked on every cache hit, used to
// drive the ratatoskr.cache.hits telemetry counter.
func WithHitCounter(fn func()) ResponseCacheOption {
	return func(c *ResponseCache) { c.onHit = fn }
}

// WithMissCounter registers a callback invoked on every cache miss, used to
// drive the ratatoskr.cache.misses telemetry counter.
func WithMissCounter(fn func()) ResponseCacheOption {
	return func(c *ResponseCache) { c.onMiss = fn }
}

// NewResponseCache builds a [ResponseCache]. Zero-value fields in cfg fall
// back to [ResponseCacheConfig] defaults.
func NewResponseCache(cfg ResponseCacheConfig, opts ...ResponseCacheOption) *ResponseCache {
	c := &ResponseCache{
		cfg:   cfg.normalize(),
		items: make(map[string]*list.Element),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key computes the cache key for a (capability, model, input) triple. input
// is marshaled to canonical JSON before hashing; callers should pass a value
// whose JSON encoding is stable (field order is fixed by struct definition,
// so any comparable struct or map with sorted keys works — encoding/json
// already sorts map keys).
func Key(cap ratatoskr.Capability, model string, input any) string {
	data, _ := json.Marshal(input)
	h := sha256.New()
	h.Write([]byte(cap))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key, if present and unexpired.
func (c *ResponseCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		if c.onMiss != nil {
			c.onMiss()
		}
		return nil, false
	}
	entry := el.Value.(*responseEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		if c.onMiss != nil {
			c.onMiss()
		}
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	if c.onHit != nil {
		c.onHit()
	}
	return entry.value, true
}

// Set inserts or refreshes the cached value for key.
func (c *ResponseCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		entry := el.Value.(*responseEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(c.cfg.TTL)
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.cfg.MaxEntries {
		c.evictOldest()
	}

	entry := &responseEntry{key: key, value: value, expiresAt: time.Now().Add(c.cfg.TTL)}
	el := c.order.PushFront(entry)
	c.items[key] = el
}

func (c *ResponseCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	entry := el.Value.(*responseEntry)
	c.order.Remove(el)
	delete(c.items, entry.key)
}

// Len returns the current number of entries, including any not yet swept
// for expiry.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cumulative hit/miss counts since creation.
func (c *ResponseCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear removes all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
}
