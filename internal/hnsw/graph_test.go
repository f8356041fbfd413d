package hnsw

import (
	"fmt"
	"testing"
)

func TestNewValidatesM(t *testing.T) {
	if _, err := New(Config{M: 1}); err == nil {
		t.Error("expected error for M < 2")
	}
}

func TestEmptyGraphSearch(t *testing.T) {
	g, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := g.Search(Vector{1, 0}, 5, 50)
	if len(got) != 0 {
		t.Errorf("expected empty result on empty graph, got %d", len(got))
	}
}

func TestInsertRejectsDuplicate(t *testing.T) {
	g, _ := New(DefaultConfig())
	if err := g.Insert("a", Vector{1, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Insert("a", Vector{0, 1}); err == nil {
		t.Error("expected conflict on duplicate id")
	}
}

// TestLinearScenario mirrors scenario 5: 20 points placed on a line,
// k=5 Euclidean search from one end must return the 5 closest in order.
func TestLinearScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metric = Euclidean
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("p%d", i)
		if err := g.Insert(id, Vector{float32(i), 0}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	got := g.Search(Vector{0, 0}, 5, 50)
	if len(got) != 5 {
		t.Fatalf("expected 5 results, got %d", len(got))
	}

	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("results not sorted ascending: %v", got)
		}
	}

	want := map[string]bool{"p0": true, "p1": true, "p2": true, "p3": true, "p4": true}
	for _, n := range got {
		if !want[n.ID] {
			t.Errorf("unexpected neighbor %s in top-5 for point at origin", n.ID)
		}
	}
}

func TestSearchKLargerThanGraph(t *testing.T) {
	g, _ := New(DefaultConfig())
	for i := 0; i < 3; i++ {
		g.Insert(fmt.Sprintf("n%d", i), Vector{float32(i), 0, 0})
	}
	got := g.Search(Vector{0, 0, 0}, 100, 50)
	if len(got) != 3 {
		t.Errorf("expected all 3 nodes returned when k > graph size, got %d", len(got))
	}
}

// TestSymmetryInvariant covers invariant 6: if A has B as a neighbor at
// layer l, B must have A as a neighbor at layer l (modulo truncation,
// which we avoid here by keeping the graph small relative to M/M0).
func TestSymmetryInvariant(t *testing.T) {
	g, _ := New(DefaultConfig())
	ids := make([]string, 10)
	for i := 0; i < 10; i++ {
		ids[i] = fmt.Sprintf("s%d", i)
		if err := g.Insert(ids[i], Vector{float32(i), float32(i % 3)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			for layer := 0; layer <= 2; layer++ {
				if g.HasNeighbor(a, b, layer) && !g.HasNeighbor(b, a, layer) {
					t.Errorf("asymmetric edge: %s -> %s at layer %d not reciprocated", a, b, layer)
				}
			}
		}
	}
}

func TestDistanceMetrics(t *testing.T) {
	t.Run("cosine zero vector is maximally distant", func(t *testing.T) {
		if d := Cosine(Vector{0, 0}, Vector{1, 0}); d != 2 {
			t.Errorf("expected 2, got %v", d)
		}
	})

	t.Run("cosine identical vectors is zero", func(t *testing.T) {
		if d := Cosine(Vector{1, 1}, Vector{1, 1}); d > 1e-9 {
			t.Errorf("expected ~0, got %v", d)
		}
	})

	t.Run("euclidean identity", func(t *testing.T) {
		if d := Euclidean(Vector{1, 2}, Vector{1, 2}); d != 0 {
			t.Errorf("expected 0, got %v", d)
		}
	})
}
