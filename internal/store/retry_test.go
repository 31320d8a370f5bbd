package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"autonomy-core/internal/apperr"
)

func TestRetryPolicy_Do_SucceedsWithoutRetryingOnFirstSuccess(t *testing.T) {
	calls := 0
	p := RetryPolicy{Base: time.Millisecond, Factor: 2, MaxAttempts: 5}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_Do_RetriesTransientErrorsUpToMaxAttempts(t *testing.T) {
	calls := 0
	p := RetryPolicy{Base: time.Millisecond, Factor: 2, MaxAttempts: 3}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return apperr.Transient("", "db connection reset", errors.New("reset"))
	})
	if err == nil {
		t.Fatal("expected the exhausted transient error to surface")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (MaxAttempts)", calls)
	}
}

func TestRetryPolicy_Do_SurfacesDomainErrorsImmediately(t *testing.T) {
	calls := 0
	p := RetryPolicy{Base: time.Millisecond, Factor: 2, MaxAttempts: 5}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return apperr.Domain("", "stale write", "task was updated concurrently", nil)
	})
	if err == nil {
		t.Fatal("expected the domain error to surface")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (domain errors are not retried)", calls)
	}
}

func TestRetryPolicy_Do_StopsOnContextCancellation(t *testing.T) {
	p := RetryPolicy{Base: 50 * time.Millisecond, Factor: 2, MaxAttempts: 5}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return apperr.Transient("", "still failing", nil)
	})
	if err == nil {
		t.Fatal("expected an error once the context is cancelled mid-backoff")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (cancellation should stop further retries)", calls)
	}
}
