// Package retry wraps cenkalti/backoff/v4 with the small policy shape
// this system needs: retry Transient failures with exponential backoff
// and jitter, honor a caller-provided context, and never retry
// terminal (ValidationError/NotFound/Conflict/Unauthorized/Forbidden)
// failures — those are returned to the caller immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dreamware/torusdb/internal/terrors"
)

// Config parameterizes the retry policy.
type Config struct {
	MaxRetries   int
	BaseDelayMs  int64
	MaxDelayMs   int64
	JitterFactor float64
	TimeoutMs    int64
}

// DefaultConfig matches the system's default RPC retry policy: a 30s
// overall timeout, exponential backoff starting at 100ms capped at 5s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		BaseDelayMs:  100,
		MaxDelayMs:   5000,
		JitterFactor: 0.5,
		TimeoutMs:    30000,
	}
}

// Do retries fn under cfg's policy. fn's error is never retried if
// terrors.IsTerminal reports true for it (ValidationError, NotFound,
// Conflict, Unauthorized, Forbidden, Fatal); anything else, including
// terrors.Transient-wrapped errors, is retried up to MaxRetries times
// or until cfg's timeout elapses, whichever comes first.
func Do(ctx context.Context, cfg Config, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Duration(cfg.BaseDelayMs) * time.Millisecond
	eb.MaxInterval = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	eb.RandomizationFactor = cfg.JitterFactor
	eb.Multiplier = 2

	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(cfg.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if terrors.IsTerminal(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}
