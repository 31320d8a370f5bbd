package scheduler

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"autonomy-core/internal/store"
)

// overlayTask is the YAML shape of one seeded task, a subset of
// store.Task with string-keyed triggers so the config file stays
// readable without exposing internal pointer fields.
type overlayTask struct {
	ID       string         `yaml:"id"`
	Owner    string         `yaml:"owner_user"`
	Kind     store.TaskKind `yaml:"kind"`
	Interval int64          `yaml:"interval_seconds"`
	Cron     string         `yaml:"cron_expr"`
	Timezone string         `yaml:"timezone"`
	DailyAt  string         `yaml:"daily_at"`
	Payload  map[string]any `yaml:"payload"`
}

type overlayFile struct {
	Tasks []overlayTask `yaml:"tasks"`
}

// SeedFromOverlay loads a YAML overlay of initial tasks and persists
// any not already present in the durable store, then publishes the
// merged snapshot to KV so read-only config mounts stay in sync (§4.5
// "a YAML overlay may seed initial tasks at boot; runtime mutations ...
// also publish an override snapshot to KV").
func (e *Engine) SeedFromOverlay(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read task overlay %s: %w", path, err)
	}

	var file overlayFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse task overlay %s: %w", path, err)
	}

	existing, err := e.gateway.LoadTasks(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t.ID] = true
	}

	now := e.clock.NowUTC()
	for _, ot := range file.Tasks {
		if ot.ID == "" || have[ot.ID] {
			continue
		}
		trigger := store.Trigger{
			IntervalSeconds: ot.Interval,
			CronExpr:        ot.Cron,
			Timezone:        ot.Timezone,
			DailyAt:         ot.DailyAt,
		}
		task := &store.Task{
			ID:        ot.ID,
			OwnerUser: ot.Owner,
			Kind:      ot.Kind,
			Trigger:   trigger,
			Enabled:   true,
			Payload:   ot.Payload,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if next, ok, err := e.clock.NextFire(trigger, now); err == nil && ok {
			task.NextRunAt = &next
		}
		if err := e.gateway.SaveTask(ctx, task); err != nil {
			e.log.Error("seed overlay task failed", "task", task.ID, "err", err)
			continue
		}
		e.log.Info("seeded task from overlay", "task", task.ID)
	}

	tasks, err := e.gateway.LoadTasks(ctx)
	if err != nil {
		return err
	}
	return e.publishUpcoming(ctx, tasks)
}
