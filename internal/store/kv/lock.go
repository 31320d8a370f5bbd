package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultLockTTL is the heartbeat refresh window. AcquireLock takes its
// own TTL, but a plain heartbeat has no caller-supplied one, so it
// reuses the scheduler's own lock TTL default (spec §5's "heartbeat
// interval well under TTL" requirement).
const defaultLockTTL = 30 * time.Second

// heartbeatScript extends the TTL only if the caller still holds the
// lock, so a lost lock can never be silently reacquired by the loser.
var heartbeatScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		redis.call("PEXPIRE", KEYS[1], ARGV[2])
		return 1
	end
	return 0
`)

// releaseScript deletes the lock only if the caller still holds it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// AcquireLock implements the SETNX-based named lock spec §6.1 requires
// for scheduler_main and per-user proactive:{user_id} locks.
func (s *Store) AcquireLock(ctx context.Context, name string, ttl time.Duration, holder string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(name), holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if ok {
		return true, nil
	}
	current, err := s.rdb.Get(ctx, lockKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		// Lock expired between SETNX and GET; treat as not held.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return current == holder, nil
}

// HeartbeatLock refreshes the TTL on a held lock.
func (s *Store) HeartbeatLock(ctx context.Context, name, holder string) (bool, error) {
	res, err := heartbeatScript.Run(ctx, s.rdb, []string{lockKey(name)}, holder, defaultLockTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("heartbeat lock %s: %w", name, err)
	}
	return res == 1, nil
}

// ReleaseLock releases a held lock. Releasing a lock held by someone
// else, or already expired, is a no-op.
func (s *Store) ReleaseLock(ctx context.Context, name, holder string) error {
	if _, err := releaseScript.Run(ctx, s.rdb, []string{lockKey(name)}, holder).Result(); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}
