package store

import (
	"context"
	"math/rand"
	"time"

	"autonomy-core/internal/apperr"
)

// RetryPolicy is the bounded exponential backoff with jitter applied to
// transient Gateway errors: base 100ms, factor 2, max 5 attempts.
type RetryPolicy struct {
	Base       time.Duration
	Factor     float64
	MaxAttempts int
}

// DefaultRetryPolicy is the policy every Gateway operation runs under.
var DefaultRetryPolicy = RetryPolicy{
	Base:        100 * time.Millisecond,
	Factor:      2,
	MaxAttempts: 5,
}

// Do runs fn, retrying transient errors (apperr.KindTransient, or any
// error not classified via apperr, which is treated as transient by
// default since drivers rarely wrap every error) up to MaxAttempts
// times. Domain/safety/resource/fatal errors are surfaced immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.Base
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		kind := apperr.KindOf(lastErr)
		if kind != "" && kind != apperr.KindTransient {
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(delay) / 2))
		select {
		case <-time.After(delay + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * p.Factor)
	}
	return lastErr
}
