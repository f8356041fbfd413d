package triplestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shard.db")
	s, err := Open(path, NoopHooks{})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestLatestWins mirrors scenario 1: insert, update, read back latest,
// then delete and confirm the tombstone hides the key.
func TestLatestWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gen := types.NewTxIDGenerator()

	entity := types.EntityId("https://example.org/e")
	pred := types.Predicate("name")

	tr1, err := types.NewTriple(entity, pred, types.StringValue("A"), 1, gen.Next())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.InsertTriple(ctx, tr1); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.UpdateTriple(ctx, entity, pred, types.StringValue("B"), gen.Next(), 2); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, ok, err := s.GetLatestTriple(ctx, entity, pred)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if !ok || got.Object.Str != "B" {
		t.Fatalf("expected latest value B, got ok=%v value=%+v", ok, got.Object)
	}

	if err := s.DeleteTriple(ctx, entity, pred, gen.Next(), 3); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, ok, err = s.GetLatestTriple(ctx, entity, pred)
	if err != nil {
		t.Fatalf("get latest after delete: %v", err)
	}
	if ok {
		t.Error("expected no live value after delete")
	}
}

func TestUpdateMissingKeyFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gen := types.NewTxIDGenerator()

	err := s.UpdateTriple(ctx, "https://example.org/missing", "name", types.StringValue("x"), gen.Next(), 1)
	if err == nil {
		t.Error("expected NotFound error updating a key with no prior triple")
	}
}

func TestBatchInsertAtomicity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gen := types.NewTxIDGenerator()

	var triples []types.Triple
	for i := 0; i < 5; i++ {
		tr, err := types.NewTriple(types.EntityId("https://example.org/batch"), types.Predicate("p"), types.StringValue("v"), int64(i), gen.Next())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		triples = append(triples, tr)
	}

	if err := s.BatchInsertTriples(ctx, triples); err != nil {
		t.Fatalf("batch insert: %v", err)
	}

	result, err := s.Scan(ctx, 0, 100)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(result.Triples) != 5 {
		t.Errorf("expected 5 rows, got %d", len(result.Triples))
	}
}

func TestScanCursorPagination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gen := types.NewTxIDGenerator()

	for i := 0; i < 10; i++ {
		tr, _ := types.NewTriple(types.EntityId("https://example.org/s"), types.Predicate("p"), types.Int64Value(int64(i)), int64(i), gen.Next())
		if err := s.InsertTriple(ctx, tr); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	page1, err := s.Scan(ctx, 0, 4)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(page1.Triples) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(page1.Triples))
	}

	page2, err := s.Scan(ctx, page1.NextID, 100)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(page2.Triples) != 6 {
		t.Errorf("expected remaining 6 rows, got %d", len(page2.Triples))
	}
}

func TestVacuumNamespaceKeepsLatestOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gen := types.NewTxIDGenerator()

	entity := types.EntityId("https://example.org/compact")
	for i := 0; i < 3; i++ {
		tr, err := types.NewTriple(entity, "name", types.StringValue("v"), int64(i), gen.Next())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.InsertTriple(ctx, tr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	removed, err := s.VacuumNamespace(ctx, "https://example.org")
	if err != nil {
		t.Fatalf("vacuum: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 superseded rows removed, got %d", removed)
	}

	result, err := s.Scan(ctx, 0, 100)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(result.Triples) != 1 {
		t.Errorf("expected 1 row remaining after vacuum, got %d", len(result.Triples))
	}
}

// TestCompactNamespaceProducesChunk mirrors scenario 1's latest-wins
// setup but exercises the GraphCol-producing path: only the latest
// value per (subject, predicate) should make it into the chunk.
func TestCompactNamespaceProducesChunk(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gen := types.NewTxIDGenerator()

	entity := types.EntityId("https://example.org/compact2")
	for i := 0; i < 3; i++ {
		tr, err := types.NewTriple(entity, "name", types.StringValue("v"), int64(i), gen.Next())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.InsertTriple(ctx, tr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	chunk, err := s.CompactNamespace(ctx, "https://example.org")
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if chunk == nil {
		t.Fatal("expected a non-nil chunk")
	}
	if chunk.Header.TripleCount != 1 {
		t.Errorf("expected only the latest version in the chunk, got %d triples", chunk.Header.TripleCount)
	}

	var rowCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE namespace = ?`, "https://example.org").Scan(&rowCount); err != nil {
		t.Fatalf("querying chunks table: %v", err)
	}
	if rowCount != 1 {
		t.Errorf("expected 1 cached chunk row, got %d", rowCount)
	}
}
