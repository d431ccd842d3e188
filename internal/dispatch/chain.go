// Package dispatch implements the per-capability provider chains, the
// dispatch algorithm (cache, validate, workarounds, retry, fallback), and
// streaming backpressure that together form the gateway's dispatcher.
package dispatch

import (
	"sort"
	"sync"
	"time"

	"github.com/emesal/ratatoskr/internal/resilience"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// entry pairs a registered provider value with its dedicated circuit
// breaker and latency tracker, plus the priority it was registered with.
type entry[T ratatoskr.Identifiable] struct {
	value    T
	priority int
	breaker  *resilience.CircuitBreaker
	latency  *Latency
}

// Chain holds one capability's ordered provider list. Registration order
// (by ascending priority, config order breaking ties) is the base order;
// [Chain.ApplyRouting] reorders it per [config.RoutingConfig] without
// mutating registration metadata, so routing changes are always relative to
// the original priorities.
type Chain[T ratatoskr.Identifiable] struct {
	mu          sync.RWMutex
	entries     []entry[T]
	breakerCfg  resilience.CircuitBreakerConfig
}

// NewChain builds an empty chain. breakerCfg is used as the template for
// every entry's circuit breaker (its Name field is overwritten per entry).
func NewChain[T ratatoskr.Identifiable](breakerCfg resilience.CircuitBreakerConfig) *Chain[T] {
	return &Chain[T]{breakerCfg: breakerCfg}
}

// Register adds provider to the chain at the given priority (lower values
// are tried first) and returns its dedicated circuit breaker, so callers
// wiring health checks can expose it.
func (c *Chain[T]) Register(provider T, priority int) *resilience.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cbCfg := c.breakerCfg
	cbCfg.Name = provider.ProviderID()
	breaker := resilience.NewCircuitBreaker(cbCfg)
	c.entries = append(c.entries, entry[T]{
		value:    provider,
		priority: priority,
		breaker:  breaker,
		latency:  NewLatency(),
	})
	sort.SliceStable(c.entries, func(i, j int) bool { return c.entries[i].priority < c.entries[j].priority })
	return breaker
}

// Len reports how many providers are registered.
func (c *Chain[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ApplyRouting reorders the chain: it first restores the original priority
// order (captured at Register time); then, if byCost is set and cost is
// non-nil, it sorts the chain ascending by cost(value), keeping priority
// order among equal costs; finally, if preferred names a registered
// provider, that provider moves to the front.
func (c *Chain[T]) ApplyRouting(preferred string, byCost bool, cost func(T) float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.SliceStable(c.entries, func(i, j int) bool { return c.entries[i].priority < c.entries[j].priority })

	if byCost && cost != nil {
		sort.SliceStable(c.entries, func(i, j int) bool {
			return cost(c.entries[i].value) < cost(c.entries[j].value)
		})
	}

	if preferred == "" {
		return
	}
	for i := range c.entries {
		if c.entries[i].value.ProviderID() == preferred {
			preferredEntry := c.entries[i]
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			c.entries = append([]entry[T]{preferredEntry}, c.entries...)
			return
		}
	}
}

// snapshot returns a copy of the current entry order, safe to iterate
// without holding the chain's lock across provider calls.
func (c *Chain[T]) snapshot() []entry[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entry[T], len(c.entries))
	copy(out, c.entries)
	return out
}

// BreakerState reports the current [resilience.State] of the circuit breaker
// dedicated to the entry registered under providerID, and whether such an
// entry exists in this chain.
func (c *Chain[T]) BreakerState(providerID string) (resilience.State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.value.ProviderID() == providerID {
			return e.breaker.State(), true
		}
	}
	return resilience.StateClosed, false
}

// ProviderIDs returns the ids of every provider registered on this chain, in
// their current chain order.
func (c *Chain[T]) ProviderIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.value.ProviderID()
	}
	return out
}

// Latencies returns each registered provider's id and current EWMA, for
// diagnostics endpoints.
func (c *Chain[T]) Latencies() map[string]time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]time.Duration, len(c.entries))
	for _, e := range c.entries {
		out[e.value.ProviderID()] = e.latency.EWMA()
	}
	return out
}
