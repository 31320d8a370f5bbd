package scheduler

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"autonomy-core/internal/intent"
	"autonomy-core/internal/store"
)

var errTaskNotFound = errors.New("task not found")

// RunNow executes id's body immediately, out of band from the fire
// loop's next_run_at bookkeeping, for operator-triggered manual runs.
func (e *Engine) RunNow(ctx context.Context, id string) error {
	tasks, err := e.gateway.LoadTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID != id {
			continue
		}
		e.executeBody(ctx, t)
		return nil
	}
	return errTaskNotFound
}

// SetEnabled toggles id's Enabled flag, clearing DisableReason when
// re-enabling.
func (e *Engine) SetEnabled(ctx context.Context, id string, enabled bool) error {
	tasks, err := e.gateway.LoadTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID != id {
			continue
		}
		t.Enabled = enabled
		if enabled {
			t.DisableReason = ""
			next, ok, err := e.clock.NextFire(t.Trigger, e.clock.NowUTC())
			if err == nil && ok {
				t.NextRunAt = &next
			}
		}
		t.UpdatedAt = e.clock.NowUTC()
		return e.gateway.SaveTask(ctx, t)
	}
	return errTaskNotFound
}

// AddTaskFromIntent persists the TaskDraft produced by the Intent
// Classifier for a schedule_add result, computing its initial
// next_run_at, per spec §4.5's "the scheduler owns next_fire
// computation, never the classifier."
func (e *Engine) AddTaskFromIntent(ctx context.Context, r intent.Result) (*store.Task, error) {
	if r.TaskDraft == nil {
		return nil, intent.AmbiguousIntent()
	}
	t := r.TaskDraft
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := e.clock.NowUTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Enabled = true

	next, ok, err := e.clock.NextFire(t.Trigger, now)
	if err != nil {
		return nil, err
	}
	if ok {
		t.NextRunAt = &next
	} else if t.Trigger.AtTimestamp != nil {
		t.NextRunAt = t.Trigger.AtTimestamp
	}

	if err := e.gateway.SaveTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns the current task set, for the admin API's schedule
// listing.
func (e *Engine) ListTasks(ctx context.Context) ([]*store.Task, error) {
	return e.gateway.LoadTasks(ctx)
}

// DeleteTask removes a task by id.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	return e.gateway.DeleteTask(ctx, id)
}
