package types

import "testing"

func TestNewTriple(t *testing.T) {
	gen := NewTxIDGenerator()

	t.Run("rejects empty subject", func(t *testing.T) {
		_, err := NewTriple("", "name", StringValue("x"), 1, gen.Next())
		if err == nil {
			t.Error("expected error for empty subject")
		}
	})

	t.Run("rejects negative timestamp", func(t *testing.T) {
		_, err := NewTriple("https://example.org/a", "name", StringValue("x"), -1, gen.Next())
		if err == nil {
			t.Error("expected error for negative timestamp")
		}
	})

	t.Run("propagates object validation errors", func(t *testing.T) {
		bad := TypedObject{Tag: TagGeoPoint, Geo: GeoPoint{Lat: 200, Lng: 0}}
		_, err := NewTriple("https://example.org/a", "loc", bad, 1, gen.Next())
		if err == nil {
			t.Error("expected error for invalid geo point")
		}
	})

	t.Run("accepts valid triple", func(t *testing.T) {
		tr, err := NewTriple("https://example.org/a", "name", StringValue("Alice"), 1000, gen.Next())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Key().Subject != "https://example.org/a" {
			t.Errorf("unexpected key: %+v", tr.Key())
		}
	})
}

func TestNewer(t *testing.T) {
	gen := NewTxIDGenerator()
	earlyTx := gen.Next()
	lateTx := gen.Next()

	t.Run("higher timestamp wins", func(t *testing.T) {
		a, _ := NewTriple("https://example.org/a", "name", StringValue("old"), 1, earlyTx)
		b, _ := NewTriple("https://example.org/a", "name", StringValue("new"), 2, earlyTx)
		got := Newer(a, b)
		if got.Object.Str != "new" {
			t.Errorf("expected new to win, got %q", got.Object.Str)
		}
	})

	t.Run("tied timestamp broken by tx_id", func(t *testing.T) {
		a, _ := NewTriple("https://example.org/a", "name", StringValue("first"), 5, earlyTx)
		b, _ := NewTriple("https://example.org/a", "name", StringValue("second"), 5, lateTx)
		got := Newer(a, b)
		if got.Object.Str != "second" {
			t.Errorf("expected second (later tx_id) to win, got %q", got.Object.Str)
		}
	})

	t.Run("tombstone wins when newest", func(t *testing.T) {
		a, _ := NewTriple("https://example.org/a", "name", StringValue("alive"), 1, earlyTx)
		b, _ := NewTriple("https://example.org/a", "name", Null(), 2, earlyTx)
		got := Newer(a, b)
		if !got.Object.IsTombstone() {
			t.Error("expected tombstone to win as newest version")
		}
	})
}
