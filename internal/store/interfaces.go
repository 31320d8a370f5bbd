package store

import (
	"context"
	"time"
)

// TaskStore is the relational half of the Persistence Gateway's task
// operations (§4.2).
type TaskStore interface {
	// SaveTask persists t. It is idempotent on the same (id, updated_at)
	// pair and returns a domain (apperr.KindDomain) error if t.UpdatedAt
	// is stale relative to the stored row.
	SaveTask(ctx context.Context, t *Task) error
	// LoadTasks returns the full task set.
	LoadTasks(ctx context.Context) ([]*Task, error)
	// DeleteTask removes a task. Idempotent.
	DeleteTask(ctx context.Context, id string) error
}

// LockStore is the distributed-lock half of the Gateway (§4.2, §5).
type LockStore interface {
	// AcquireLock returns true if the lock was acquired, or was already
	// held by holder.
	AcquireLock(ctx context.Context, name string, ttl time.Duration, holder string) (bool, error)
	// HeartbeatLock refreshes the lock. Returns false if the lock was
	// lost (held by someone else or expired and reclaimed).
	HeartbeatLock(ctx context.Context, name, holder string) (bool, error)
	// ReleaseLock releases the lock if held by holder.
	ReleaseLock(ctx context.Context, name, holder string) error
}

// EventStore is the append-only stream half of the Gateway.
type EventStore interface {
	AppendDecision(ctx context.Context, ev DecisionEvent) error
	AppendReinforcement(ctx context.Context, ev ReinforcementEvent) error
}

// ProfileStore is the AutonomyProfile half of the Gateway.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p *AutonomyProfile) error
	LoadProfile(ctx context.Context, userID string) (*AutonomyProfile, error)
	// ClaimProactiveSlot attempts to claim (userID, day, slot) via a
	// unique-index insert; returns false if the slot is already claimed.
	ClaimProactiveSlot(ctx context.Context, slot ProactiveSlot) (bool, error)
}

// ToolServerStore persists supervisor snapshots for status reporting
// across restarts (best-effort; the live source of truth is the
// in-memory Supervisor).
type ToolServerStore interface {
	SaveToolServerState(ctx context.Context, s ToolServerState) error
	LoadToolServerStates(ctx context.Context) ([]ToolServerState, error)
}

// StatePublisher publishes bounded-rate snapshots to the KV store, used
// for the scheduler's "upcoming jobs" and runtime capability snapshots.
type StatePublisher interface {
	PublishState(ctx context.Context, key string, snapshot []byte, minInterval time.Duration) error
}

// Gateway is the full Persistence Gateway surface, composing the
// relational and KV stores into one dependency for handlers.
type Gateway interface {
	TaskStore
	LockStore
	EventStore
	ProfileStore
	ToolServerStore
	StatePublisher

	Ping(ctx context.Context) error
}
