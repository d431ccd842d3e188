package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// Registry merges three layers of model metadata: a compiled-in seed, an
// optional cached remote snapshot, and an ephemeral in-memory layer
// populated from live provider responses (fetch_model_metadata calls). A
// lookup starts from seed, shallow-merges the cached layer over it field by
// field, then shallow-merges the live layer over that result, with live >
// cached > seed precedence throughout.
type Registry struct {
	mu sync.RWMutex

	seed   map[string]ratatoskr.ModelMetadata
	cached map[string]ratatoskr.ModelMetadata
	live   map[string]ratatoskr.ModelMetadata

	cachedAt time.Time
}

// New builds a Registry with the compiled-in seed as its base layer.
func New() *Registry {
	return &Registry{
		seed: Seed(),
		live: make(map[string]ratatoskr.ModelMetadata),
	}
}

// LoadCached installs snap as the registry's cached layer, replacing any
// previous one. Passing nil clears it, falling back to seed-only until the
// next successful fetch.
func (r *Registry) LoadCached(snap *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap == nil {
		r.cached = nil
		r.cachedAt = time.Time{}
		return
	}
	r.cached = snap.ByID()
	r.cachedAt = snap.FetchedAt
}

// RecordLive installs metadata learned from a live provider response
// (fetch_model_metadata) into the ephemeral layer. It takes precedence over
// both seed and cached for this process's remaining lifetime.
func (r *Registry) RecordLive(metadata ratatoskr.ModelMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[metadata.ID] = metadata
}

// Lookup returns the merged metadata for modelID and whether it was found in
// any layer.
func (r *Registry) Lookup(modelID string) (ratatoskr.ModelMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(modelID)
}

func (r *Registry) lookupLocked(modelID string) (ratatoskr.ModelMetadata, bool) {
	seed, hasSeed := r.seed[modelID]
	cached, hasCached := r.cached[modelID]
	live, hasLive := r.live[modelID]

	if !hasSeed && !hasCached && !hasLive {
		return ratatoskr.ModelMetadata{}, false
	}

	merged := seed
	if hasCached {
		merged = mergeModelMetadata(merged, cached, hasSeed)
	}
	if hasLive {
		merged = mergeModelMetadata(merged, live, hasSeed || hasCached)
	}
	if !hasSeed && !hasCached {
		merged = live
	}
	merged.ID = modelID
	return merged, true
}

// mergeModelMetadata shallow-merges overlay onto base field by field: a
// non-zero overlay field replaces base's, capability sets union, and
// parameter availability maps merge per parameter with overlay winning ties.
// haveBase indicates whether base carries any real data (it is the zero
// value when overlay is the first layer to know about the model).
func mergeModelMetadata(base, overlay ratatoskr.ModelMetadata, haveBase bool) ratatoskr.ModelMetadata {
	if !haveBase {
		return overlay
	}

	out := base
	out.ProviderID = firstNonEmpty(overlay.ProviderID, base.ProviderID)
	out.ContextWindow = firstNonZeroInt(overlay.ContextWindow, base.ContextWindow)
	out.OutputDimensions = firstNonZeroInt(overlay.OutputDimensions, base.OutputDimensions)
	out.MaxOutputTokens = firstNonZeroInt(overlay.MaxOutputTokens, base.MaxOutputTokens)
	if overlay.Pricing != (ratatoskr.Pricing{}) {
		out.Pricing = overlay.Pricing
	}
	out.Capabilities = unionCapabilities(base.Capabilities, overlay.Capabilities)
	out.Parameters = mergeParameters(base.Parameters, overlay.Parameters)
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZeroInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func unionCapabilities(a, b []ratatoskr.Capability) []ratatoskr.Capability {
	seen := make(map[ratatoskr.Capability]bool, len(a)+len(b))
	out := make([]ratatoskr.Capability, 0, len(a)+len(b))
	for _, caps := range [][]ratatoskr.Capability{a, b} {
		for _, c := range caps {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func mergeParameters(
	base, overlay map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability,
) map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	out := make(map[ratatoskr.ParameterName]ratatoskr.ParameterAvailability, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// List returns every model known to any layer, field-merged by the same
// live > cached > seed precedence as Lookup, sorted by ID for deterministic
// output.
func (r *Registry) List() []ratatoskr.ModelMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]bool, len(r.seed)+len(r.cached)+len(r.live))
	for id := range r.seed {
		ids[id] = true
	}
	for id := range r.cached {
		ids[id] = true
	}
	for id := range r.live {
		ids[id] = true
	}

	out := make([]ratatoskr.ModelMetadata, 0, len(ids))
	for id := range ids {
		if m, ok := r.lookupLocked(id); ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CachedAt returns when the current cached layer was fetched, and whether a
// cached layer is installed at all.
func (r *Registry) CachedAt() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cachedAt, r.cached != nil
}
