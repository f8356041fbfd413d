package objectstore

import (
	"context"
	"testing"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, "datasets/ns/chunks/1.chunk", []byte("data")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Get(ctx, "datasets/ns/chunks/1.chunk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("got %q, want %q", got, "data")
	}
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestMemoryListPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Put(ctx, "datasets/a/chunks/1.chunk", []byte("x"))
	m.Put(ctx, "datasets/a/chunks/2.chunk", []byte("y"))
	m.Put(ctx, "datasets/b/chunks/1.chunk", []byte("z"))

	keys, err := m.List(ctx, "datasets/a/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
}

func TestMemoryPutOverwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Put(ctx, "k", []byte("v1"))
	m.Put(ctx, "k", []byte("v2"))
	got, _ := m.Get(ctx, "k")
	if string(got) != "v2" {
		t.Errorf("expected overwritten value, got %q", got)
	}
}
