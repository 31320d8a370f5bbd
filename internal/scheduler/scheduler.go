// Package scheduler implements the Scheduler Engine: a durable store of
// tasks fired under a distributed single-runner lock, generalizing the
// teacher's worker pull-loop (internal/worker/agent.go) from "dequeue a
// batch of jobs" to "load due tasks, advance next_run_at, execute by
// kind." The fire-loop worker plays the role of Agent.Run's select
// loop; next_fire-driven requeue plays the role of DequeueBatch/backoff.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"autonomy-core/internal/clock"
	"autonomy-core/internal/store"
	"autonomy-core/internal/toolregistry"
)

const lockName = "scheduler_main"

// Notification is one message the scheduler wants delivered to a user,
// consumed by the transport collaborator. The scheduler owns this
// unidirectional channel; the transport never reaches back into
// scheduler internals, breaking the cyclic reference the source's
// mutual scheduler<->transport awareness would otherwise create.
type Notification struct {
	UserID  string
	Message string
	TaskID  string
}

// Config holds the scheduler's tunables, a subset of internal/config.Config.
type Config struct {
	TickInterval          time.Duration
	LockTTL               time.Duration
	HeartbeatInterval     time.Duration
	StatePublishMinInterval time.Duration
	WorkflowHTTPTimeout   time.Duration
	WorkflowHTTPRetries   int
	StepTimeBudget        time.Duration
	FailureBudget         int
	WorkerPoolSize        int
}

// Engine is the Scheduler Engine.
type Engine struct {
	gateway  store.Gateway
	clock    clock.Clock
	registry *toolregistry.Registry
	log      *slog.Logger
	cfg      Config
	holderID string

	outbound chan Notification
}

// New constructs an Engine. outbound must be a buffered channel; the
// scheduler never blocks indefinitely on send (§5's "bounded outbound
// notification channel").
func New(gw store.Gateway, ck clock.Clock, registry *toolregistry.Registry, log *slog.Logger, cfg Config, outbound chan Notification) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 10 * time.Second
	}
	if cfg.StatePublishMinInterval <= 0 {
		cfg.StatePublishMinInterval = 10 * time.Second
	}
	if cfg.StepTimeBudget <= 0 {
		cfg.StepTimeBudget = 50 * time.Millisecond
	}
	if cfg.FailureBudget <= 0 {
		cfg.FailureBudget = 10
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 8
	}
	return &Engine{
		gateway:  gw,
		clock:    ck,
		registry: registry,
		log:      log,
		cfg:      cfg,
		holderID: uuid.NewString(),
		outbound: outbound,
	}
}

// Outbound exposes the notification channel for the transport
// collaborator to consume.
func (e *Engine) Outbound() <-chan Notification { return e.outbound }

// Run acquires the single-runner lock and drives the fire loop until
// ctx is cancelled. If the lock is lost mid-run, firing suspends and
// acquisition is retried, per §4.5's "suspends firing" contract.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	heldLock := false
	heartbeat := time.NewTicker(e.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			if heldLock {
				_ = e.gateway.ReleaseLock(context.Background(), lockName, e.holderID)
			}
			return nil

		case <-heartbeat.C:
			if !heldLock {
				continue
			}
			ok, err := e.gateway.HeartbeatLock(ctx, lockName, e.holderID)
			if err != nil || !ok {
				e.log.Warn("scheduler lost lock, suspending fire loop", "err", err)
				heldLock = false
			}

		case <-ticker.C:
			if !heldLock {
				ok, err := e.gateway.AcquireLock(ctx, lockName, e.cfg.LockTTL, e.holderID)
				if err != nil {
					e.log.Error("acquire scheduler lock failed", "err", err)
					continue
				}
				if !ok {
					continue
				}
				heldLock = true
				e.log.Info("scheduler acquired lock", "holder", e.holderID)
			}
			if err := e.tick(ctx); err != nil {
				e.log.Error("scheduler tick failed", "err", err)
			}
		}
	}
}

// tick implements the per-tick fire loop of §4.5.
func (e *Engine) tick(ctx context.Context) error {
	tasks, err := e.gateway.LoadTasks(ctx)
	if err != nil {
		return err
	}

	now := e.clock.NowUTC()
	for _, t := range tasks {
		if !t.Enabled || t.NextRunAt == nil || t.NextRunAt.After(now) {
			continue
		}
		e.fireOne(ctx, t, now)
	}

	return e.publishUpcoming(ctx, tasks)
}

// fireOne advances next_run_at and persists BEFORE executing the task
// body. This order is mandatory: it prevents double-fire on crash, at
// the cost of at-least-once delivery under crash-after-persist-before-
// execute (the Open Question this repo's design deliberately accepts).
func (e *Engine) fireOne(ctx context.Context, t *store.Task, now time.Time) {
	anchor := now
	if t.LastRunAt != nil {
		anchor = *t.LastRunAt
	}
	next, ok, err := e.clock.NextFire(t.Trigger, anchor)
	if err != nil {
		e.log.Error("next_fire failed", "task", t.ID, "err", err)
		return
	}

	t.LastRunAt = &now
	if ok {
		t.NextRunAt = &next
	} else {
		t.NextRunAt = nil
		t.Enabled = false
	}
	if t.Kind == store.TaskKindOneShot {
		t.Enabled = false
	}
	t.UpdatedAt = now

	if err := e.gateway.SaveTask(ctx, t); err != nil {
		e.log.Error("persist fired task failed", "task", t.ID, "err", err)
		return
	}

	e.executeBody(ctx, t)
}

func (e *Engine) executeBody(ctx context.Context, t *store.Task) {
	switch t.Kind {
	case store.TaskKindInterval, store.TaskKindCron, store.TaskKindReminder:
		e.deliver(t.OwnerUser, renderPayload(t.Payload), t.ID)

	case store.TaskKindOneShot:
		e.deliver(t.OwnerUser, renderPayload(t.Payload), t.ID)

	case store.TaskKindWorkflow:
		e.runWorkflow(ctx, t)

	default:
		e.log.Error("unknown task kind", "task", t.ID, "kind", t.Kind)
	}
}

// deliver sends to the bounded outbound channel without blocking
// indefinitely; a full channel drops the notification and logs it
// rather than stalling the fire loop.
func (e *Engine) deliver(userID, message, taskID string) {
	select {
	case e.outbound <- Notification{UserID: userID, Message: message, TaskID: taskID}:
	default:
		e.log.Warn("outbound notification channel full, dropping", "task", taskID)
	}
}

func renderPayload(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if msg, ok := payload["message"].(string); ok {
		return msg
	}
	return ""
}

// publishUpcoming publishes the upcoming-jobs snapshot, rate-limited by
// the gateway's own min-interval enforcement.
func (e *Engine) publishUpcoming(ctx context.Context, tasks []*store.Task) error {
	snapshot, err := marshalUpcoming(tasks)
	if err != nil {
		return err
	}
	return e.gateway.PublishState(ctx, "her:scheduler:state", snapshot, e.cfg.StatePublishMinInterval)
}

// recordStepFailure appends a workflow_step_failed DecisionEvent and
// increments the task's failure_count, auto-disabling past the budget.
func (e *Engine) recordStepFailure(ctx context.Context, t *store.Task, stepErr error) {
	t.FailureCount++
	details := map[string]any{"error": stepErr.Error()}
	if t.FailureCount > e.cfg.FailureBudget {
		t.Enabled = false
		t.DisableReason = "failure_budget_exhausted"
	}
	_ = e.gateway.AppendDecision(ctx, store.DecisionEvent{
		ID:        uuid.NewString(),
		Timestamp: e.clock.NowUTC(),
		EventType: "workflow_step_failed",
		UserID:    t.OwnerUser,
		Source:    "scheduler",
		Summary:   "workflow step failed",
		Details:   details,
	})
	if err := e.gateway.SaveTask(ctx, t); err != nil {
		e.log.Error("persist failure_count failed", "task", t.ID, "err", err)
	}
}
