package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/store"
)

// SaveTask upserts a task row. It uses INSERT ... ON CONFLICT DO UPDATE
// guarded by updated_at so a stale write loses to a newer one, the
// optimistic-concurrency shape spec §4.2 asks for.
func (g *Gateway) SaveTask(ctx context.Context, t *store.Task) error {
	trigger, err := json.Marshal(t.Trigger)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return err
	}
	steps, err := json.Marshal(t.Steps)
	if err != nil {
		return err
	}
	state, err := json.Marshal(t.State)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, owner_user, kind, trigger, enabled, payload, steps, state,
			last_run_at, next_run_at, last_result, failure_count, disable_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (id) DO UPDATE SET
			owner_user = EXCLUDED.owner_user,
			kind = EXCLUDED.kind,
			trigger = EXCLUDED.trigger,
			enabled = EXCLUDED.enabled,
			payload = EXCLUDED.payload,
			steps = EXCLUDED.steps,
			state = EXCLUDED.state,
			last_run_at = EXCLUDED.last_run_at,
			next_run_at = EXCLUDED.next_run_at,
			last_result = EXCLUDED.last_result,
			failure_count = EXCLUDED.failure_count,
			disable_reason = EXCLUDED.disable_reason,
			updated_at = now()
		WHERE tasks.updated_at <= $15
	`
	res, err := g.db.ExecContext(ctx, query,
		t.ID, t.OwnerUser, t.Kind, trigger, t.Enabled, payload, steps, state,
		t.LastRunAt, t.NextRunAt, t.LastResult, t.FailureCount, t.DisableReason, t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return apperr.Transient("", fmt.Sprintf("save task %s: %v", t.ID, err), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := g.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)", t.ID).Scan(&exists); err == nil && exists {
			return apperr.Domain("", "task was updated concurrently", fmt.Sprintf("stale write for task %s", t.ID), nil)
		}
	}
	return nil
}

// LoadTasks returns the full task set.
func (g *Gateway) LoadTasks(ctx context.Context) ([]*store.Task, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, owner_user, kind, trigger, enabled, payload, steps, state,
			last_run_at, next_run_at, last_result, failure_count, disable_reason, created_at, updated_at
		FROM tasks
	`)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*store.Task, error) {
	var t store.Task
	var trigger, payload, steps, state []byte
	err := row.Scan(&t.ID, &t.OwnerUser, &t.Kind, &trigger, &t.Enabled, &payload, &steps, &state,
		&t.LastRunAt, &t.NextRunAt, &t.LastResult, &t.FailureCount, &t.DisableReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(trigger, &t.Trigger); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t.Payload); err != nil {
			return nil, err
		}
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &t.Steps); err != nil {
			return nil, err
		}
	}
	if len(state) > 0 {
		if err := json.Unmarshal(state, &t.State); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// DeleteTask removes a task. Idempotent: a missing row is not an error.
func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	_, err := g.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}
