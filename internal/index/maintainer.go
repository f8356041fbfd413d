// Package index implements the Index Maintainer (C2): the set of
// secondary indexes kept in sync with the triple store via the
// insert/update/delete hook contract, plus the shard-wide entity bloom
// filter.
package index

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/dreamware/torusdb/internal/bloom"
	"github.com/dreamware/torusdb/internal/hnsw"
	"github.com/dreamware/torusdb/internal/types"
)

// Config tunes the maintainer's sub-indexes and is fixed for the
// lifetime of a shard.
type Config struct {
	// EmbeddingPredicates names the predicates whose FLOAT64-array
	// (carried as TagBinary, little-endian packed) objects are indexed
	// into HNSW rather than POS alone.
	EmbeddingPredicates []string
	GeohashPrecision    int
	EntityBloomCapacity uint64
	EntityBloomFPR      float64
	HNSWConfig          hnsw.Config
}

// DefaultConfig mirrors the defaults named across §4.2/§4.5/§4.7.
func DefaultConfig() Config {
	return Config{
		GeohashPrecision:    DefaultGeohashPrecision,
		EntityBloomCapacity: 100000,
		EntityBloomFPR:      0.01,
		HNSWConfig:          hnsw.DefaultConfig(),
	}
}

// Maintainer implements triplestore.Hooks structurally (no import of
// that package is needed, avoiding a cycle since triplestore.Hooks is
// defined purely in terms of types.Triple).
type Maintainer struct {
	cfg Config

	ids *idMap
	pos *posIndex
	osp *ospIndex
	fts *ftsIndex
	geo *geoIndex

	embeddingPredicates map[string]bool

	hnswMu sync.Mutex
	hnsw   map[string]*hnsw.Graph // predicate -> graph

	bloomMu     sync.Mutex
	entityBloom *bloom.Filter
	seenMu      sync.Mutex
	seenSubject map[types.EntityId]bool
}

// NewMaintainer builds a Maintainer from cfg, falling back to
// DefaultConfig's values for zero fields.
func NewMaintainer(cfg Config) (*Maintainer, error) {
	if cfg.GeohashPrecision <= 0 {
		cfg.GeohashPrecision = DefaultGeohashPrecision
	}
	if cfg.EntityBloomCapacity == 0 {
		cfg.EntityBloomCapacity = DefaultConfig().EntityBloomCapacity
	}
	if cfg.EntityBloomFPR == 0 {
		cfg.EntityBloomFPR = DefaultConfig().EntityBloomFPR
	}
	bf, err := bloom.New(cfg.EntityBloomCapacity, cfg.EntityBloomFPR)
	if err != nil {
		return nil, err
	}

	embedding := make(map[string]bool, len(cfg.EmbeddingPredicates))
	for _, p := range cfg.EmbeddingPredicates {
		embedding[p] = true
	}

	ids := newIDMap()
	return &Maintainer{
		cfg:                 cfg,
		ids:                 ids,
		pos:                 newPOSIndex(ids),
		osp:                 newOSPIndex(ids),
		fts:                 newFTSIndex(),
		geo:                 newGeoIndex(cfg.GeohashPrecision),
		embeddingPredicates: embedding,
		hnsw:                make(map[string]*hnsw.Graph),
		entityBloom:         bf,
		seenSubject:         make(map[types.EntityId]bool),
	}, nil
}

// decodeEmbedding interprets a TagBinary payload as a little-endian
// packed float64 vector; this is the maintainer's chosen on-disk shape
// for embedding objects since TypedObject has no dedicated vector tag.
func decodeEmbedding(raw []byte) hnsw.Vector {
	if len(raw)%8 != 0 {
		return nil
	}
	vec := make(hnsw.Vector, len(raw)/8)
	for i := range vec {
		bits := binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
		vec[i] = float32(math.Float64frombits(bits))
	}
	return vec
}

func (m *Maintainer) graphFor(predicate string) *hnsw.Graph {
	m.hnswMu.Lock()
	defer m.hnswMu.Unlock()
	g, ok := m.hnsw[predicate]
	if !ok {
		g, _ = hnsw.New(m.cfg.HNSWConfig)
		m.hnsw[predicate] = g
	}
	return g
}

// recordSubjectSeen applies the bloom filter update rule: on first
// insertion of a new subject into the shard, add it to the entity
// bloom filter; subsequent inserts of the same subject are no-ops.
func (m *Maintainer) recordSubjectSeen(subject types.EntityId) {
	m.seenMu.Lock()
	firstSeen := !m.seenSubject[subject]
	if firstSeen {
		m.seenSubject[subject] = true
	}
	m.seenMu.Unlock()

	if !firstSeen {
		return
	}
	m.bloomMu.Lock()
	m.entityBloom.Add([]byte(subject))
	m.bloomMu.Unlock()
}

// recordSubjectGone decrements the bloom filter's logical count without
// clearing membership (monotonic adds, per §4.2).
func (m *Maintainer) recordSubjectGone() {
	m.bloomMu.Lock()
	m.entityBloom.DecrementCount()
	m.bloomMu.Unlock()
}

func (m *Maintainer) indexInsert(t types.Triple) {
	if t.Object.IsTombstone() {
		return
	}
	o := t.Object
	m.pos.add(t.Subject, t.Predicate, o)

	switch o.Tag {
	case types.TagRef:
		m.osp.add(t.Subject, t.Predicate, o.Ref)
	case types.TagString, types.TagURL:
		m.fts.index(t.Subject, t.Predicate, o.Str)
	case types.TagMonolingual:
		m.fts.index(t.Subject, t.Predicate, o.Mono.Text)
	case types.TagGeoPoint:
		m.geo.add(t.Subject, o.Geo.Lat, o.Geo.Lng)
	case types.TagBinary:
		if m.embeddingPredicates[string(t.Predicate)] {
			if vec := decodeEmbedding(o.Bytes); vec != nil {
				_ = m.graphFor(string(t.Predicate)).Insert(t.Subject.String(), vec)
			}
		}
	}
	m.recordSubjectSeen(t.Subject)
}

func (m *Maintainer) indexRemove(t types.Triple) {
	if t.Object.IsTombstone() {
		return
	}
	o := t.Object
	m.pos.remove(t.Subject, t.Predicate, o)

	switch o.Tag {
	case types.TagRef:
		m.osp.remove(t.Subject, t.Predicate, o.Ref)
	case types.TagString, types.TagURL:
		m.fts.remove(t.Subject, t.Predicate, o.Str)
	case types.TagMonolingual:
		m.fts.remove(t.Subject, t.Predicate, o.Mono.Text)
	case types.TagGeoPoint:
		m.geo.remove(t.Subject, o.Geo.Lat, o.Geo.Lng)
		// HNSW has no node-removal primitive (§4.7 describes insert and
		// search only); an embedding triple's delete/update leaves its
		// HNSW node in place. Stale vector-search hits are filtered by
		// the caller re-checking the triple store's current value.
	}
}

// OnInsert implements triplestore.Hooks.
func (m *Maintainer) OnInsert(t types.Triple) error {
	m.indexInsert(t)
	return nil
}

// OnUpdate implements triplestore.Hooks.
func (m *Maintainer) OnUpdate(old, new types.Triple) error {
	m.indexRemove(old)
	m.indexInsert(new)
	return nil
}

// OnDelete implements triplestore.Hooks.
func (m *Maintainer) OnDelete(t types.Triple) error {
	m.indexRemove(t)
	m.recordSubjectGone()
	return nil
}

// OnBatchInsert implements triplestore.Hooks. The batch path is
// observably equivalent to calling OnInsert in order; no additional
// deferral is done here since the sub-indexes are already O(1)-amortized
// per triple.
func (m *Maintainer) OnBatchInsert(ts []types.Triple) error {
	for _, t := range ts {
		m.indexInsert(t)
	}
	return nil
}

// OnBatchDelete implements triplestore.Hooks.
func (m *Maintainer) OnBatchDelete(ts []types.Triple) error {
	for _, t := range ts {
		m.indexRemove(t)
		m.recordSubjectGone()
	}
	return nil
}

// Rebuild discards all sub-index state and replays it from a full
// triple-store scan, the supplemented repair path for recovering from a
// corrupted or stale index without rebuilding the triple store itself.
func (m *Maintainer) Rebuild(triples []types.Triple) error {
	fresh, err := NewMaintainer(m.cfg)
	if err != nil {
		return err
	}
	for _, t := range triples {
		fresh.indexInsert(t)
	}

	m.seenMu.Lock()
	m.ids = fresh.ids
	m.pos = fresh.pos
	m.osp = fresh.osp
	m.fts = fresh.fts
	m.geo = fresh.geo
	m.seenSubject = fresh.seenSubject
	m.seenMu.Unlock()

	m.hnswMu.Lock()
	m.hnsw = fresh.hnsw
	m.hnswMu.Unlock()

	m.bloomMu.Lock()
	m.entityBloom = fresh.entityBloom
	m.bloomMu.Unlock()
	return nil
}

// SubjectsWithValue returns every subject whose predicate equals o
// (POS exact-match probe).
func (m *Maintainer) SubjectsWithValue(predicate types.Predicate, o types.TypedObject) []types.EntityId {
	return m.pos.subjectsWith(predicate, o)
}

// ReverseTraverse returns every subject with predicate pointing at
// target (OSP probe).
func (m *Maintainer) ReverseTraverse(target types.EntityId, predicate types.Predicate) []types.EntityId {
	return m.osp.reverseTraverse(target, predicate)
}

// SearchText runs a sanitized full-text query and returns matching
// (subject, predicate) document keys.
func (m *Maintainer) SearchText(query string) ([]string, error) {
	clean, err := Sanitize(query)
	if err != nil {
		return nil, err
	}
	return m.fts.search(clean), nil
}

// Radius runs a geo radius query in kilometers.
func (m *Maintainer) Radius(lat, lng, radiusKm float64) []RadiusResult {
	return m.geo.radius(lat, lng, radiusKm)
}

// BBox runs a geo bounding-box query, handling antimeridian crossing
// when minLng > maxLng.
func (m *Maintainer) BBox(minLat, minLng, maxLat, maxLng float64) []RadiusResult {
	return m.geo.bbox(minLat, minLng, maxLat, maxLng)
}

// VectorSearch runs an approximate k-nearest-neighbor search against
// the HNSW graph for predicate. An unconfigured or empty predicate
// graph returns an empty result, not an error.
func (m *Maintainer) VectorSearch(predicate string, query hnsw.Vector, k, ef int) []hnsw.Neighbor {
	if !m.embeddingPredicates[predicate] {
		return nil
	}
	return m.graphFor(predicate).Search(query, k, ef)
}

// MightContainSubject probes the shard-wide entity bloom filter.
func (m *Maintainer) MightContainSubject(id types.EntityId) bool {
	m.bloomMu.Lock()
	defer m.bloomMu.Unlock()
	return m.entityBloom.MightExist([]byte(id))
}

// EntityBloomCount returns the bloom filter's logical add/remove tally.
func (m *Maintainer) EntityBloomCount() uint64 {
	m.bloomMu.Lock()
	defer m.bloomMu.Unlock()
	return m.entityBloom.Count()
}
