package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/dreamware/torusdb/internal/terrors"
)

func fastConfig() Config {
	return Config{MaxRetries: 3, BaseDelayMs: 1, MaxDelayMs: 5, JitterFactor: 0, TimeoutMs: 2000}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return terrors.Transient(errors.New("temporary"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoDoesNotRetryTerminal(t *testing.T) {
	calls := 0
	wantErr := terrors.NewValidation("field", "bad")
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Errorf("expected terminal error to pass through unwrapped, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a terminal error, got %d", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return terrors.Transient(errors.New("always fails"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls < 2 {
		t.Errorf("expected multiple attempts, got %d", calls)
	}
}
