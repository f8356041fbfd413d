package shard

import (
	"context"
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

func TestQueryPointLookupWithProject(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	alice := types.EntityId("https://example.org/alice")
	if err := s.CreateEntity(ctx, alice, map[types.Predicate]types.TypedObject{
		"name": types.StringValue("Alice"),
		"age":  types.Int64Value(30),
	}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	result, err := s.Query(ctx, `<https://example.org/alice>{name}`, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(result.Entities))
	}
	if _, ok := result.Entities[0].Fields["age"]; ok {
		t.Fatal("projection should have excluded age")
	}
	if result.Entities[0].Fields["name"].Str != "Alice" {
		t.Fatalf("unexpected name: %+v", result.Entities[0].Fields["name"])
	}
}

func TestQueryPOSScanFusedWithEqualityFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	for i, name := range []string{"Alice", "Bob"} {
		id := types.EntityId("https://example.org/p" + string(rune('0'+i)))
		status := "active"
		if name == "Bob" {
			status = "inactive"
		}
		if err := s.CreateEntity(ctx, id, map[types.Predicate]types.TypedObject{
			"name":   types.StringValue(name),
			"status": types.StringValue(status),
		}); err != nil {
			t.Fatalf("CreateEntity: %v", err)
		}
	}

	result, err := s.Query(ctx, `status[?status="active"]`, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 active entity, got %d", len(result.Entities))
	}
	if result.Entities[0].Fields["name"].Str != "Alice" {
		t.Fatalf("expected Alice, got %+v", result.Entities[0])
	}
}

func TestAllSubjectsForPredicateLinearScan(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	if err := s.CreateEntity(ctx, "https://example.org/a", map[types.Predicate]types.TypedObject{
		"knows": types.RefValue("https://example.org/b"),
	}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := s.CreateEntity(ctx, "https://example.org/b", nil); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	subjects, err := s.AllSubjectsForPredicate(ctx, "knows")
	if err != nil {
		t.Fatalf("AllSubjectsForPredicate: %v", err)
	}
	if len(subjects) != 1 || subjects[0] != "https://example.org/a" {
		t.Fatalf("unexpected subjects: %v", subjects)
	}
}
