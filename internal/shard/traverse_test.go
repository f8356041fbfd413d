package shard

import (
	"context"
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

func chain(ctx context.Context, t *testing.T, s *Shard) (a, b, c types.EntityId) {
	t.Helper()
	a, b, c = "https://example.org/a", "https://example.org/b", "https://example.org/c"
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("CreateEntity: %v", err)
		}
	}
	must(s.CreateEntity(ctx, c, nil))
	must(s.CreateEntity(ctx, b, map[types.Predicate]types.TypedObject{"knows": types.RefValue(c)}))
	must(s.CreateEntity(ctx, a, map[types.Predicate]types.TypedObject{"knows": types.RefValue(b)}))
	return a, b, c
}

func TestTraverseSingleHop(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	a, b, _ := chain(ctx, t, s)

	result, err := s.Traverse(ctx, a, "knows", TraversalOptions{})
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].ID != b {
		t.Fatalf("expected [%s], got %+v", b, result.Entities)
	}
}

func TestTraverseMultiHopCollectsAllReached(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	_, b, c := chain(ctx, t, s)
	a := types.EntityId("https://example.org/a")

	result, err := s.Traverse(ctx, a, "knows", TraversalOptions{MaxDepth: 2})
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("expected 2 entities reached (b and c), got %+v", result.Entities)
	}
	seen := map[types.EntityId]bool{}
	for _, e := range result.Entities {
		seen[e.ID] = true
	}
	if !seen[b] || !seen[c] {
		t.Fatalf("expected both b and c reached, got %+v", result.Entities)
	}
}

func TestReverseTraverseSingleHop(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	a, b, _ := chain(ctx, t, s)

	result, err := s.TraverseBack(ctx, b, "knows", TraversalOptions{})
	if err != nil {
		t.Fatalf("ReverseTraverse: %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].ID != a {
		t.Fatalf("expected [%s], got %+v", a, result.Entities)
	}
}

func TestPathTraverseFollowsSequence(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	a, _, c := chain(ctx, t, s)

	result, err := s.PathTraverse(ctx, a, []types.Predicate{"knows", "knows"}, TraversalOptions{})
	if err != nil {
		t.Fatalf("PathTraverse: %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].ID != c {
		t.Fatalf("expected [%s], got %+v", c, result.Entities)
	}
}

func TestTraversePaginationCursor(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	root := types.EntityId("https://example.org/root")
	if err := s.CreateEntity(ctx, root, nil); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	var leaves []types.EntityId
	for i := 0; i < 5; i++ {
		id := types.EntityId("https://example.org/leaf" + string(rune('0'+i)))
		if err := s.CreateEntity(ctx, id, map[types.Predicate]types.TypedObject{
			"parent": types.RefValue(root),
		}); err != nil {
			t.Fatalf("CreateEntity: %v", err)
		}
		leaves = append(leaves, id)
	}

	result, err := s.TraverseBack(ctx, root, "parent", TraversalOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ReverseTraverse: %v", err)
	}
	if len(result.Entities) != 2 || !result.HasMore || result.Cursor == "" {
		t.Fatalf("expected a 2-entity page with more, got %+v", result)
	}

	result2, err := s.TraverseBack(ctx, root, "parent", TraversalOptions{Limit: 2, Cursor: result.Cursor})
	if err != nil {
		t.Fatalf("ReverseTraverse page 2: %v", err)
	}
	if len(result2.Entities) != 2 {
		t.Fatalf("expected 2 more entities, got %+v", result2.Entities)
	}
	_ = leaves
}
