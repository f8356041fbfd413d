package index

import (
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

func TestPOSExactMatch(t *testing.T) {
	ids := newIDMap()
	p := newPOSIndex(ids)

	p.add("https://example.org/alice", "status", types.StringValue("active"))
	p.add("https://example.org/bob", "status", types.StringValue("active"))
	p.add("https://example.org/carol", "status", types.StringValue("inactive"))

	got := p.subjectsWith("status", types.StringValue("active"))
	if len(got) != 2 {
		t.Fatalf("expected 2 subjects, got %d: %v", len(got), got)
	}
}

func TestPOSRemove(t *testing.T) {
	ids := newIDMap()
	p := newPOSIndex(ids)

	p.add("https://example.org/alice", "status", types.StringValue("active"))
	p.remove("https://example.org/alice", "status", types.StringValue("active"))

	got := p.subjectsWith("status", types.StringValue("active"))
	if len(got) != 0 {
		t.Fatalf("expected 0 subjects after remove, got %d", len(got))
	}
}

func TestPOSDistinguishesTagsAndPredicates(t *testing.T) {
	ids := newIDMap()
	p := newPOSIndex(ids)

	p.add("https://example.org/a", "age", types.Int64Value(30))
	p.add("https://example.org/b", "rank", types.Int64Value(30))

	if got := p.subjectsWith("age", types.Int64Value(30)); len(got) != 1 {
		t.Fatalf("expected 1 subject for age=30, got %d", len(got))
	}
	if got := p.subjectsWith("rank", types.Int64Value(30)); len(got) != 1 {
		t.Fatalf("expected 1 subject for rank=30, got %d", len(got))
	}
}

func TestPOSMissingKeyReturnsNil(t *testing.T) {
	ids := newIDMap()
	p := newPOSIndex(ids)
	if got := p.subjectsWith("nope", types.StringValue("x")); got != nil {
		t.Fatalf("expected nil for unknown key, got %v", got)
	}
}
