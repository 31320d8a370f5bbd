// Package kv implements the Redis-backed half of the Persistence
// Gateway: distributed locks, rate-limited state snapshots, and the
// ring-buffer mirrors of the decision and reinforcement logs described
// in the External Interfaces section, backed by
// github.com/redis/go-redis/v9.
package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Namespaces mirror the key layout named in SPEC_FULL.md §6.1.
const (
	keyPrefix              = "her:"
	keySchedulerState      = keyPrefix + "scheduler:state"
	keySchedulerOverride   = keyPrefix + "scheduler:tasks_override"
	keyDecisionLogs        = keyPrefix + "decision:logs"
	keyReinforcementEvents = keyPrefix + "reinforcement:events"
	keyMetricsPrefix       = keyPrefix + "metrics:"
	keyLogs                = keyPrefix + "logs"
	keySandboxExecutions   = keyPrefix + "sandbox:executions"
	keyRuntimeCapabilities = keyPrefix + "runtime:capabilities"
	keyContextPrefix       = keyPrefix + "context:"

	ringBufferMaxLen = 500
)

// Store implements store.LockStore, store.StatePublisher, and the
// bounded ring-buffer mirrors, over a single Redis connection pool.
type Store struct {
	rdb *redis.Client
}

// New connects to Redis at addr (a redis:// URL, parsed the same way
// go-redis's ParseURL expects).
func New(addr string) (*Store, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	return &Store{rdb: rdb}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func lockKey(name string) string {
	return keyPrefix + "lock:" + name
}
