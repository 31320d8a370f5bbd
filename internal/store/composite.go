package store

import (
	"context"
	"time"
)

// Composite composes a relational store and a KV store into the single
// Gateway surface downstream components depend on, wrapping every
// operation in DefaultRetryPolicy.Do so the bounded exponential backoff
// §4.2 requires applies uniformly instead of being left to each driver.
type Composite struct {
	Relational interface {
		TaskStore
		EventStore
		ProfileStore
		ToolServerStore
		Ping(ctx context.Context) error
	}
	KV interface {
		LockStore
		StatePublisher
	}
	Retry RetryPolicy
}

func NewComposite(relational interface {
	TaskStore
	EventStore
	ProfileStore
	ToolServerStore
	Ping(ctx context.Context) error
}, kv interface {
	LockStore
	StatePublisher
}) *Composite {
	return &Composite{Relational: relational, KV: kv, Retry: DefaultRetryPolicy}
}

func (c *Composite) SaveTask(ctx context.Context, t *Task) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.Relational.SaveTask(ctx, t) })
}

func (c *Composite) LoadTasks(ctx context.Context) ([]*Task, error) {
	var out []*Task
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		tasks, err := c.Relational.LoadTasks(ctx)
		out = tasks
		return err
	})
	return out, err
}

func (c *Composite) DeleteTask(ctx context.Context, id string) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.Relational.DeleteTask(ctx, id) })
}

func (c *Composite) AppendDecision(ctx context.Context, ev DecisionEvent) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.Relational.AppendDecision(ctx, ev) })
}

func (c *Composite) AppendReinforcement(ctx context.Context, ev ReinforcementEvent) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.Relational.AppendReinforcement(ctx, ev) })
}

func (c *Composite) SaveProfile(ctx context.Context, p *AutonomyProfile) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.Relational.SaveProfile(ctx, p) })
}

func (c *Composite) LoadProfile(ctx context.Context, userID string) (*AutonomyProfile, error) {
	var out *AutonomyProfile
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		p, err := c.Relational.LoadProfile(ctx, userID)
		out = p
		return err
	})
	return out, err
}

func (c *Composite) ClaimProactiveSlot(ctx context.Context, slot ProactiveSlot) (bool, error) {
	var out bool
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		claimed, err := c.Relational.ClaimProactiveSlot(ctx, slot)
		out = claimed
		return err
	})
	return out, err
}

func (c *Composite) SaveToolServerState(ctx context.Context, s ToolServerState) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.Relational.SaveToolServerState(ctx, s) })
}

func (c *Composite) LoadToolServerStates(ctx context.Context) ([]ToolServerState, error) {
	var out []ToolServerState
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		states, err := c.Relational.LoadToolServerStates(ctx)
		out = states
		return err
	})
	return out, err
}

func (c *Composite) AcquireLock(ctx context.Context, name string, ttl time.Duration, holder string) (bool, error) {
	var out bool
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		acquired, err := c.KV.AcquireLock(ctx, name, ttl, holder)
		out = acquired
		return err
	})
	return out, err
}

func (c *Composite) HeartbeatLock(ctx context.Context, name, holder string) (bool, error) {
	var out bool
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		held, err := c.KV.HeartbeatLock(ctx, name, holder)
		out = held
		return err
	})
	return out, err
}

func (c *Composite) ReleaseLock(ctx context.Context, name, holder string) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.KV.ReleaseLock(ctx, name, holder) })
}

func (c *Composite) PublishState(ctx context.Context, key string, snapshot []byte, minInterval time.Duration) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error {
		return c.KV.PublishState(ctx, key, snapshot, minInterval)
	})
}

func (c *Composite) Ping(ctx context.Context) error {
	return c.Retry.Do(ctx, func(ctx context.Context) error { return c.Relational.Ping(ctx) })
}

var _ Gateway = (*Composite)(nil)
