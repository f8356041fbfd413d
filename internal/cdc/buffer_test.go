package cdc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dreamware/torusdb/internal/types"
)

func testEvent(i int) Event {
	return Event{
		Type:      EventInsert,
		Triple:    types.Triple{Subject: types.EntityId("https://example.org/e"), Predicate: types.Predicate("p")},
		Timestamp: int64(i),
	}
}

func TestNewDefaultCapacity(t *testing.T) {
	b := New(0)
	if b.Capacity() != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, b.Capacity())
	}
}

func TestAppendAndFlushOrder(t *testing.T) {
	b := New(10)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := b.Append(ctx, testEvent(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	events := b.Flush()
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Timestamp != int64(i) {
			t.Errorf("position %d: expected timestamp %d, got %d", i, i, ev.Timestamp)
		}
	}
	if b.Len() != 0 {
		t.Errorf("expected buffer empty after flush, got %d", b.Len())
	}
}

func TestTryAppendFullReturnsFalse(t *testing.T) {
	b := New(2)
	if !b.TryAppend(testEvent(1)) {
		t.Fatal("expected first append to succeed")
	}
	if !b.TryAppend(testEvent(2)) {
		t.Fatal("expected second append to succeed")
	}
	if b.TryAppend(testEvent(3)) {
		t.Error("expected third append on a full buffer to fail")
	}
}

// TestAppendBlocksUntilDrained exercises the block-on-overflow
// backpressure policy: a full buffer's Append does not return until
// the consumer flushes.
func TestAppendBlocksUntilDrained(t *testing.T) {
	b := New(1)
	ctx := context.Background()
	if err := b.Append(ctx, testEvent(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.Append(ctx, testEvent(1)); err != nil {
			t.Errorf("blocked append failed: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("append on full buffer returned before drain")
	case <-time.After(50 * time.Millisecond):
		// expected: still blocked
	}

	b.Flush()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked append never unblocked after flush")
	}
	wg.Wait()
}

func TestAppendRespectsContextCancellation(t *testing.T) {
	b := New(1)
	ctx := context.Background()
	if err := b.Append(ctx, testEvent(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Append(cctx, testEvent(1)); err == nil {
		t.Error("expected context deadline error on blocked append")
	}
}
