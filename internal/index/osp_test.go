package index

import (
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

// TestReverseTraversal covers scenario 2: given a REF fan-in, reverse
// traversal from the target must recover every pointing subject.
func TestReverseTraversal(t *testing.T) {
	ids := newIDMap()
	o := newOSPIndex(ids)

	team := types.EntityId("https://example.org/team/eng")
	o.add("https://example.org/alice", "memberOf", team)
	o.add("https://example.org/bob", "memberOf", team)
	o.add("https://example.org/carol", "memberOf", "https://example.org/team/sales")

	got := o.reverseTraverse(team, "memberOf")
	if len(got) != 2 {
		t.Fatalf("expected 2 subjects pointing at team, got %d: %v", len(got), got)
	}
}

func TestReverseTraversalAfterRemove(t *testing.T) {
	ids := newIDMap()
	o := newOSPIndex(ids)

	team := types.EntityId("https://example.org/team/eng")
	o.add("https://example.org/alice", "memberOf", team)
	o.remove("https://example.org/alice", "memberOf", team)

	if got := o.reverseTraverse(team, "memberOf"); len(got) != 0 {
		t.Fatalf("expected 0 subjects after remove, got %d", len(got))
	}
}

func TestReverseTraversalUnknownTarget(t *testing.T) {
	ids := newIDMap()
	o := newOSPIndex(ids)
	if got := o.reverseTraverse("https://example.org/nowhere", "memberOf"); got != nil {
		t.Fatalf("expected nil for unknown target, got %v", got)
	}
}
