package registry_test

import (
	"testing"
	"time"

	"github.com/emesal/ratatoskr/internal/registry"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

func TestRegistry_LookupFallsBackToSeed(t *testing.T) {
	r := registry.New()

	m, ok := r.Lookup("gpt-4o")
	if !ok {
		t.Fatal("expected seed model gpt-4o to be found")
	}
	if m.ProviderID != "openai" {
		t.Errorf("ProviderID: got %q, want %q", m.ProviderID, "openai")
	}
}

func TestRegistry_LookupUnknownModel(t *testing.T) {
	r := registry.New()
	if _, ok := r.Lookup("does-not-exist"); ok {
		t.Fatal("expected lookup of unknown model to fail")
	}
}

func TestRegistry_CachedOverridesSeed(t *testing.T) {
	r := registry.New()

	overridden := ratatoskr.ModelMetadata{
		ID:            "gpt-4o",
		ProviderID:    "openai-cached",
		ContextWindow: 999,
	}
	r.LoadCached(&registry.Snapshot{
		FetchedAt: time.Unix(1000, 0),
		Models:    []ratatoskr.ModelMetadata{overridden},
	})

	m, ok := r.Lookup("gpt-4o")
	if !ok {
		t.Fatal("expected gpt-4o to still be found")
	}
	if m.ProviderID != "openai-cached" {
		t.Errorf("ProviderID: got %q, want %q (cached layer should win)", m.ProviderID, "openai-cached")
	}

	at, has := r.CachedAt()
	if !has {
		t.Fatal("expected a cached layer to be installed")
	}
	if !at.Equal(time.Unix(1000, 0)) {
		t.Errorf("CachedAt: got %v, want %v", at, time.Unix(1000, 0))
	}
}

func TestRegistry_LiveOverridesCachedAndSeed(t *testing.T) {
	r := registry.New()

	r.LoadCached(&registry.Snapshot{
		Models: []ratatoskr.ModelMetadata{{ID: "gpt-4o", ProviderID: "openai-cached"}},
	})
	r.RecordLive(ratatoskr.ModelMetadata{ID: "gpt-4o", ProviderID: "openai-live", ContextWindow: 1})

	m, ok := r.Lookup("gpt-4o")
	if !ok {
		t.Fatal("expected gpt-4o to be found")
	}
	if m.ProviderID != "openai-live" {
		t.Errorf("ProviderID: got %q, want %q (live layer should win)", m.ProviderID, "openai-live")
	}
}

func TestRegistry_LoadCachedNilClearsLayer(t *testing.T) {
	r := registry.New()
	r.LoadCached(&registry.Snapshot{
		Models: []ratatoskr.ModelMetadata{{ID: "gpt-4o", ProviderID: "openai-cached"}},
	})
	r.LoadCached(nil)

	if _, has := r.CachedAt(); has {
		t.Fatal("expected cached layer to be cleared")
	}

	m, ok := r.Lookup("gpt-4o")
	if !ok {
		t.Fatal("expected seed to still resolve gpt-4o")
	}
	if m.ProviderID != "openai" {
		t.Errorf("ProviderID after clearing cache: got %q, want seed value %q", m.ProviderID, "openai")
	}
}

func TestRegistry_ListIsSortedAndMerged(t *testing.T) {
	r := registry.New()
	r.RecordLive(ratatoskr.ModelMetadata{ID: "zzz-custom", ProviderID: "local"})

	models := r.List()
	if len(models) < len(registry.Seed())+1 {
		t.Fatalf("expected List to include seed models plus the live one, got %d entries", len(models))
	}
	for i := 1; i < len(models); i++ {
		if models[i].ID < models[i-1].ID {
			t.Fatalf("List not sorted by ID: %q before %q", models[i-1].ID, models[i].ID)
		}
	}

	found := false
	for _, m := range models {
		if m.ID == "zzz-custom" {
			found = true
		}
	}
	if !found {
		t.Error("expected zzz-custom from the live layer to appear in List")
	}
}
