package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// snapshotVersion is the current wire version written by [SaveSnapshot].
const snapshotVersion = 1

// Snapshot is the versioned, serializable form of a remote model-metadata
// feed. It is the unit persisted to [RemoteRegistryConfig.CachePath] and
// fetched from [RemoteRegistryConfig.SnapshotPath].
type Snapshot struct {
	Version   int                      `json:"version"`
	FetchedAt time.Time                `json:"fetched_at"`
	Models    []ratatoskr.ModelMetadata `json:"models"`
}

// LoadSnapshot reads a [Snapshot] from a local path or an http(s) URL. A bare
// JSON array (no envelope) is accepted as a version-0 snapshot for backward
// compatibility with feeds predating the versioned envelope.
func LoadSnapshot(location string) (*Snapshot, error) {
	var data []byte
	var err error

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		data, err = fetchHTTP(location)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: load snapshot %q: %w", location, err)
	}
	return parseSnapshot(data)
}

func fetchHTTP(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parseSnapshot(data []byte) (*Snapshot, error) {
	var envelope Snapshot
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Version > 0 {
		return &envelope, nil
	}

	// Fall back to the bare-array v0 form.
	var models []ratatoskr.ModelMetadata
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("registry: not a valid v0 or versioned snapshot: %w", err)
	}
	return &Snapshot{Version: 0, Models: models}, nil
}

// SaveSnapshot writes snap to path as the current versioned JSON format,
// used to cache a fetched remote snapshot for startup without network access.
func SaveSnapshot(path string, snap *Snapshot) error {
	snap.Version = snapshotVersion
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("registry: write snapshot %q: %w", path, err)
	}
	return nil
}

// ByID indexes snap's models by ID for merge lookups.
func (s *Snapshot) ByID() map[string]ratatoskr.ModelMetadata {
	out := make(map[string]ratatoskr.ModelMetadata, len(s.Models))
	for _, m := range s.Models {
		out[m.ID] = m
	}
	return out
}
