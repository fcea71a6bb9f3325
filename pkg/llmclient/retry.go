package llmclient

import (
	"context"
	"math/rand/v2"
	"time"
)

// MaxTransientRetries bounds retries of a transient LLM/embedding failure
// (spec.md §7: "the core retries on transient failure (max 2)").
const MaxTransientRetries = 2

// RetryBackoffBase and RetryBackoffMax bound the exponential backoff between
// retries, mirroring pkg/mcp/recovery.go's jittered retry window.
const (
	RetryBackoffBase = 200 * time.Millisecond
	RetryBackoffMax  = 2 * time.Second
)

// WithRetry runs op up to MaxTransientRetries+1 times, retrying only on
// ErrTransient with jittered exponential backoff. Any other error, including
// ErrSchema, is returned immediately — schema failures are the caller's
// responsibility to re-prompt once (spec.md §7 llm.schema).
func WithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= MaxTransientRetries; attempt++ {
		if attempt > 0 {
			backoff := min(RetryBackoffBase*time.Duration(1<<uint(attempt-1)), RetryBackoffMax)
			jitter := time.Duration(rand.Int64N(int64(backoff / 4)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}
		lastErr = op(ctx)
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
