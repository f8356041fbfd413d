package coordinator

import (
	"context"
	"encoding/json"

	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// Manifest is the per-namespace dataset manifest published alongside
// every chunk, matching §6's manifest.json shape.
type Manifest struct {
	Version      string            `json:"version"`
	Format       string            `json:"format"`
	Dataset      string            `json:"dataset"`
	Source       string            `json:"source"`
	Schema       map[string]string `json:"schema"`
	Stats        ManifestStats     `json:"stats"`
	CreatedAt    int64             `json:"createdAt"`
	LoadDuration int64             `json:"loadDuration"`
}

// ManifestStats accumulates across every chunk flushed for a namespace.
type ManifestStats struct {
	TotalTriples   int64 `json:"totalTriples"`
	TotalChunks    int64 `json:"totalChunks"`
	TotalEntities  int64 `json:"totalEntities"`
	TotalSizeBytes int64 `json:"totalSizeBytes"`
	ParseErrors    int64 `json:"parseErrors"`
}

func manifestKey(namespace string) string {
	return "datasets/" + namespace + "/manifest.json"
}

// publishManifest reads the namespace's existing manifest (if any),
// folds in this flush's contribution, and writes it back. TotalEntities
// is a per-flush distinct-subject count accumulated across chunks, so
// it overcounts an entity touched by more than one chunk; it is
// informational, not a dedup guarantee.
func (c *Coordinator) publishManifest(ctx context.Context, namespace string, triples []types.Triple, chunkBytes int) error {
	m := Manifest{
		Version: "1",
		Format:  "graphcol",
		Dataset: namespace,
		Source:  "torusdb-coordinator",
		Schema: map[string]string{
			"subject":   "entity URL",
			"predicate": "field name",
			"object":    "tagged typed value",
		},
	}

	if existing, err := c.store.Get(ctx, manifestKey(namespace)); err == nil {
		var prev Manifest
		if jsonErr := json.Unmarshal(existing, &prev); jsonErr == nil {
			m.Stats = prev.Stats
			m.CreatedAt = prev.CreatedAt
		}
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = nowMillis()
	}

	entities := make(map[types.EntityId]struct{})
	for _, t := range triples {
		entities[t.Subject] = struct{}{}
	}
	m.Stats.TotalTriples += int64(len(triples))
	m.Stats.TotalChunks++
	m.Stats.TotalEntities += int64(len(entities))
	m.Stats.TotalSizeBytes += int64(chunkBytes)

	data, err := json.Marshal(m)
	if err != nil {
		return terrors.Fatal(err)
	}
	return c.store.Put(ctx, manifestKey(namespace), data)
}
