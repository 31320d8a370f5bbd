package kv

import (
	"context"
	"fmt"
	"time"
)

// PublishState writes snapshot under key, but skips the write if the
// key was last published less than minInterval ago. This is the
// bounded-rate publisher spec §5 requires for the scheduler's
// "upcoming jobs" and Process Supervisor capability snapshots, so a
// tight fire loop cannot flood Redis with per-tick writes.
func (s *Store) PublishState(ctx context.Context, key string, snapshot []byte, minInterval time.Duration) error {
	throttleKey := key + ":throttle"
	ok, err := s.rdb.SetNX(ctx, throttleKey, "1", minInterval).Result()
	if err != nil {
		return fmt.Errorf("publish state throttle check %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := s.rdb.Set(ctx, key, snapshot, 0).Err(); err != nil {
		return fmt.Errorf("publish state %s: %w", key, err)
	}
	return nil
}

// SchedulerStateKey is the well-known key the scheduler publishes its
// upcoming-jobs snapshot under.
func SchedulerStateKey() string { return keySchedulerState }

// RuntimeCapabilitiesKey is the well-known key the Process Supervisor
// publishes its live tool inventory under.
func RuntimeCapabilitiesKey() string { return keyRuntimeCapabilities }
