package arkrpc

import (
	"context"
	"time"
)

// These constants bound the backoff applied to one-shot request/response RPCs
// (unlike the settlement event stream, these are not a drain loop, so a
// one-shot helper rather than a ticker-driven worker fits the call shape).
const (
	maxAttempts = 5
	baseBackoff = 200 * time.Millisecond
	capBackoff  = 5 * time.Second
)

// withRetry calls fn up to maxAttempts times, doubling the delay between
// attempts (capped at capBackoff), stopping early if ctx is cancelled or fn
// returns a nil error.
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := baseBackoff
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > capBackoff {
				delay = capBackoff
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
