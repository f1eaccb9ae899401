package arkrpc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryStopsAfterMaxAttempts(t *testing.T) {
	wantErr := errors.New("boom")
	calls := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if calls != maxAttempts {
		t.Errorf("calls = %d, want %d", calls, maxAttempts)
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return errors.New("keep failing")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryRespectsAlreadyExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	calls := 0
	err := withRetry(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	// The first attempt always runs regardless of context state; only the
	// inter-attempt sleep checks ctx.Done().
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
