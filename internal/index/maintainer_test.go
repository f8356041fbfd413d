package index

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

func packEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], math.Float64bits(v))
	}
	return buf
}

func newTriple(t *testing.T, gen *types.TxIDGenerator, subject types.EntityId, predicate types.Predicate, o types.TypedObject, ts int64) types.Triple {
	t.Helper()
	tr, err := types.NewTriple(subject, predicate, o, ts, gen.Next())
	if err != nil {
		t.Fatalf("NewTriple: %v", err)
	}
	return tr
}

func TestMaintainerOnInsertPopulatesPOS(t *testing.T) {
	m, err := NewMaintainer(DefaultConfig())
	if err != nil {
		t.Fatalf("NewMaintainer: %v", err)
	}
	gen := types.NewTxIDGenerator()
	tr := newTriple(t, gen, "https://example.org/alice", "status", types.StringValue("active"), 1)

	if err := m.OnInsert(tr); err != nil {
		t.Fatalf("OnInsert: %v", err)
	}
	got := m.SubjectsWithValue("status", types.StringValue("active"))
	if len(got) != 1 || got[0] != "https://example.org/alice" {
		t.Fatalf("expected alice indexed, got %v", got)
	}
}

func TestMaintainerOnInsertPopulatesOSP(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()
	team := types.EntityId("https://example.org/team/eng")
	tr := newTriple(t, gen, "https://example.org/alice", "memberOf", types.RefValue(team), 1)

	_ = m.OnInsert(tr)
	got := m.ReverseTraverse(team, "memberOf")
	if len(got) != 1 || got[0] != "https://example.org/alice" {
		t.Fatalf("expected reverse traversal to find alice, got %v", got)
	}
}

func TestMaintainerOnInsertPopulatesFTS(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()
	tr := newTriple(t, gen, "https://example.org/alice", "bio", types.StringValue("quick brown fox"), 1)
	_ = m.OnInsert(tr)

	got, err := m.SearchText("quick fox")
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 FTS match, got %v", got)
	}
}

func TestMaintainerOnInsertPopulatesGeo(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()
	geo, err := types.GeoPointValue(37.7749, -122.4194)
	if err != nil {
		t.Fatalf("GeoPointValue: %v", err)
	}
	tr := newTriple(t, gen, "https://example.org/sf", "location", geo, 1)
	_ = m.OnInsert(tr)

	got := m.Radius(37.7749, -122.4194, 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 geo match, got %v", got)
	}
}

func TestMaintainerOnInsertPopulatesHNSW(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmbeddingPredicates = []string{"embedding"}
	m, _ := NewMaintainer(cfg)
	gen := types.NewTxIDGenerator()

	tr := newTriple(t, gen, "https://example.org/doc1", "embedding", types.BinaryValue(packEmbedding([]float64{1, 0, 0})), 1)
	_ = m.OnInsert(tr)

	results := m.VectorSearch("embedding", []float32{1, 0, 0}, 1, 10)
	if len(results) != 1 {
		t.Fatalf("expected 1 HNSW match, got %v", results)
	}
}

func TestMaintainerOnUpdateMovesIndexEntries(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()
	old := newTriple(t, gen, "https://example.org/alice", "status", types.StringValue("active"), 1)
	_ = m.OnInsert(old)

	updated := newTriple(t, gen, "https://example.org/alice", "status", types.StringValue("inactive"), 2)
	if err := m.OnUpdate(old, updated); err != nil {
		t.Fatalf("OnUpdate: %v", err)
	}

	if got := m.SubjectsWithValue("status", types.StringValue("active")); len(got) != 0 {
		t.Fatalf("expected old value removed, got %v", got)
	}
	if got := m.SubjectsWithValue("status", types.StringValue("inactive")); len(got) != 1 {
		t.Fatalf("expected new value indexed, got %v", got)
	}
}

func TestMaintainerOnDeleteRemovesIndexEntries(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()
	tr := newTriple(t, gen, "https://example.org/alice", "status", types.StringValue("active"), 1)
	_ = m.OnInsert(tr)
	_ = m.OnDelete(tr)

	if got := m.SubjectsWithValue("status", types.StringValue("active")); len(got) != 0 {
		t.Fatalf("expected 0 after delete, got %v", got)
	}
}

// TestMaintainerBloomFirstInsertOnly covers §4.2's bloom-filter update
// rule: only the first insertion of a subject adds to the bloom filter
// and its count; repeat inserts of the same subject are no-ops, and a
// delete decrements count but never clears membership.
func TestMaintainerBloomFirstInsertOnly(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()

	first := newTriple(t, gen, "https://example.org/alice", "status", types.StringValue("active"), 1)
	_ = m.OnInsert(first)
	if got := m.EntityBloomCount(); got != 1 {
		t.Fatalf("expected count 1 after first insert, got %d", got)
	}

	second := newTriple(t, gen, "https://example.org/alice", "age", types.Int64Value(30), 2)
	_ = m.OnInsert(second)
	if got := m.EntityBloomCount(); got != 1 {
		t.Fatalf("expected count unchanged on second triple for same subject, got %d", got)
	}

	if !m.MightContainSubject("https://example.org/alice") {
		t.Fatal("expected alice to be present in bloom filter")
	}

	_ = m.OnDelete(second)
	if got := m.EntityBloomCount(); got != 0 {
		t.Fatalf("expected count decremented to 0 after delete, got %d", got)
	}
	if !m.MightContainSubject("https://example.org/alice") {
		t.Fatal("bloom membership must not be cleared by delete (monotonic adds)")
	}
}

func TestMaintainerOnBatchInsertMatchesScalarSequence(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()

	batch := []types.Triple{
		newTriple(t, gen, "https://example.org/a", "status", types.StringValue("active"), 1),
		newTriple(t, gen, "https://example.org/b", "status", types.StringValue("active"), 2),
	}
	if err := m.OnBatchInsert(batch); err != nil {
		t.Fatalf("OnBatchInsert: %v", err)
	}
	if got := m.SubjectsWithValue("status", types.StringValue("active")); len(got) != 2 {
		t.Fatalf("expected 2 subjects after batch insert, got %v", got)
	}
}

func TestMaintainerOnBatchDelete(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()

	batch := []types.Triple{
		newTriple(t, gen, "https://example.org/a", "status", types.StringValue("active"), 1),
		newTriple(t, gen, "https://example.org/b", "status", types.StringValue("active"), 2),
	}
	_ = m.OnBatchInsert(batch)
	if err := m.OnBatchDelete(batch); err != nil {
		t.Fatalf("OnBatchDelete: %v", err)
	}
	if got := m.SubjectsWithValue("status", types.StringValue("active")); len(got) != 0 {
		t.Fatalf("expected 0 subjects after batch delete, got %v", got)
	}
}

func TestMaintainerRebuildReplaysState(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	gen := types.NewTxIDGenerator()
	tr := newTriple(t, gen, "https://example.org/alice", "status", types.StringValue("active"), 1)
	_ = m.OnInsert(tr)

	if err := m.Rebuild([]types.Triple{tr}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := m.SubjectsWithValue("status", types.StringValue("active")); len(got) != 1 {
		t.Fatalf("expected index state preserved across rebuild, got %v", got)
	}
}

func TestMaintainerVectorSearchUnconfiguredPredicate(t *testing.T) {
	m, _ := NewMaintainer(DefaultConfig())
	got := m.VectorSearch("embedding", []float32{1, 0, 0}, 1, 10)
	if got != nil {
		t.Fatalf("expected nil for unconfigured embedding predicate, got %v", got)
	}
}
