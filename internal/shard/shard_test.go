package shard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dreamware/torusdb/internal/index"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

func newTestShard(t *testing.T) *Shard {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shard.db")
	s, err := Open("shard-0", "https://example.org", path, index.DefaultConfig(), 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetEntity(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	alice := types.EntityId("https://example.org/alice")

	err := s.CreateEntity(ctx, alice, map[types.Predicate]types.TypedObject{
		"name": types.StringValue("Alice"),
		"age":  types.Int64Value(30),
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	e, ok, err := s.GetEntity(ctx, alice)
	if err != nil || !ok {
		t.Fatalf("GetEntity: ok=%v, err=%v", ok, err)
	}
	if e.Fields["name"].Str != "Alice" {
		t.Fatalf("unexpected name field: %+v", e.Fields["name"])
	}
}

func TestCreateEntityConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	alice := types.EntityId("https://example.org/alice")

	if err := s.CreateEntity(ctx, alice, nil); err != nil {
		t.Fatalf("first CreateEntity: %v", err)
	}
	err := s.CreateEntity(ctx, alice, nil)
	var conflict *terrors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestUpdateEntityNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	err := s.UpdateEntity(ctx, "https://example.org/ghost", map[types.Predicate]types.TypedObject{
		"name": types.StringValue("nobody"),
	})
	var nf *terrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateEntityRevisesAndExtends(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	alice := types.EntityId("https://example.org/alice")
	if err := s.CreateEntity(ctx, alice, map[types.Predicate]types.TypedObject{
		"name": types.StringValue("Alice"),
	}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	err := s.UpdateEntity(ctx, alice, map[types.Predicate]types.TypedObject{
		"name": types.StringValue("Alice B."),
		"age":  types.Int64Value(31),
	})
	if err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}

	e, _, _ := s.GetEntity(ctx, alice)
	if e.Fields["name"].Str != "Alice B." {
		t.Fatalf("expected revised name, got %+v", e.Fields["name"])
	}
	if e.Fields["age"].I64 != 31 {
		t.Fatalf("expected extended age field, got %+v", e.Fields["age"])
	}
}

func TestDeleteEntityIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	alice := types.EntityId("https://example.org/alice")
	if err := s.CreateEntity(ctx, alice, map[types.Predicate]types.TypedObject{
		"name": types.StringValue("Alice"),
	}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	if err := s.DeleteEntity(ctx, alice); err != nil {
		t.Fatalf("first DeleteEntity: %v", err)
	}
	if _, ok, _ := s.GetEntity(ctx, alice); ok {
		t.Fatal("expected entity to be gone after delete")
	}
	if err := s.DeleteEntity(ctx, alice); err != nil {
		t.Fatalf("second DeleteEntity should be a no-op, got %v", err)
	}
	if err := s.DeleteEntity(ctx, "https://example.org/never-existed"); err != nil {
		t.Fatalf("deleting unknown entity should be a no-op, got %v", err)
	}
}

func TestWritesEmitCDCEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestShard(t)
	alice := types.EntityId("https://example.org/alice")

	if err := s.CreateEntity(ctx, alice, map[types.Predicate]types.TypedObject{
		"name": types.StringValue("Alice"),
	}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := s.DeleteEntity(ctx, alice); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}

	events := s.CDC.Flush()
	if len(events) != 4 { // $id insert, name insert, then $id and name deletes
		t.Fatalf("expected 4 CDC events, got %d", len(events))
	}
}
