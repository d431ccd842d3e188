package cache

import (
	"testing"
	"time"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

func TestDiscoveryCache_RecordAndHas(t *testing.T) {
	c := NewDiscoveryCache(DiscoveryCacheConfig{TTL: time.Minute})
	rec := ratatoskr.DiscoveryRecord{
		ProviderID: "openai",
		ModelID:    "gpt-4o-mini",
		Parameter:  ratatoskr.ParamTopK,
		Timestamp:  time.Now(),
		Reason:     "not supported by provider",
	}

	if c.Has(rec.ProviderID, rec.ModelID, rec.Parameter) {
		t.Fatal("expected no record before insert")
	}

	first := c.Record(rec)
	if !first {
		t.Fatal("expected first insert to report firstOccurrence=true")
	}
	if !c.Has(rec.ProviderID, rec.ModelID, rec.Parameter) {
		t.Fatal("expected Has to report true after Record")
	}
}

func TestDiscoveryCache_RefreshIsNotFirstOccurrence(t *testing.T) {
	c := NewDiscoveryCache(DiscoveryCacheConfig{TTL: time.Minute})
	rec := ratatoskr.DiscoveryRecord{
		ProviderID: "openai",
		ModelID:    "gpt-4o-mini",
		Parameter:  ratatoskr.ParamTopK,
		Timestamp:  time.Now(),
	}

	if !c.Record(rec) {
		t.Fatal("expected first Record to be a first occurrence")
	}
	if c.Record(rec) {
		t.Fatal("expected second Record of a still-live entry to not be a first occurrence")
	}
}

func TestDiscoveryCache_ExpiresAndCanRediscover(t *testing.T) {
	c := NewDiscoveryCache(DiscoveryCacheConfig{TTL: time.Millisecond})
	rec := ratatoskr.DiscoveryRecord{
		ProviderID: "openai",
		ModelID:    "gpt-4o-mini",
		Parameter:  ratatoskr.ParamTopK,
		Timestamp:  time.Now(),
	}
	c.Record(rec)
	time.Sleep(5 * time.Millisecond)

	if c.Has(rec.ProviderID, rec.ModelID, rec.Parameter) {
		t.Fatal("expected record to have expired")
	}

	rec.Timestamp = time.Now()
	if !c.Record(rec) {
		t.Fatal("expected rediscovery after expiry to be a first occurrence again")
	}
}

func TestDiscoveryCache_InsertCounterFiresOnceForLiveEntry(t *testing.T) {
	count := 0
	c := NewDiscoveryCache(DiscoveryCacheConfig{TTL: time.Minute}, WithDiscoveryCounter(func(ratatoskr.DiscoveryRecord) {
		count++
	}))
	rec := ratatoskr.DiscoveryRecord{ProviderID: "p", ModelID: "m", Parameter: ratatoskr.ParamSeed, Timestamp: time.Now()}

	c.Record(rec)
	c.Record(rec)
	c.Record(rec)

	if count != 1 {
		t.Fatalf("insert counter fired %d times, want 1", count)
	}
}

func TestDiscoveryCache_Forget(t *testing.T) {
	c := NewDiscoveryCache(DiscoveryCacheConfig{TTL: time.Minute})
	rec := ratatoskr.DiscoveryRecord{ProviderID: "p", ModelID: "m", Parameter: ratatoskr.ParamSeed, Timestamp: time.Now()}
	c.Record(rec)
	c.Forget(rec.ProviderID, rec.ModelID, rec.Parameter)
	if c.Has(rec.ProviderID, rec.ModelID, rec.Parameter) {
		t.Fatal("expected Forget to remove the record")
	}
}

func TestDiscoveryCache_List(t *testing.T) {
	c := NewDiscoveryCache(DiscoveryCacheConfig{TTL: time.Minute})
	c.Record(ratatoskr.DiscoveryRecord{ProviderID: "p1", ModelID: "m", Parameter: ratatoskr.ParamSeed, Timestamp: time.Now()})
	c.Record(ratatoskr.DiscoveryRecord{ProviderID: "p2", ModelID: "m", Parameter: ratatoskr.ParamTopK, Timestamp: time.Now()})

	records := c.List()
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
}
