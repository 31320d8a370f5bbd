package adminapi

import (
	"net/http"
	"time"

	"autonomy-core/internal/store"
	"autonomy-core/pkg/api"
)

// Example handles GET /admin/example: one worked task per trigger kind,
// for an operator learning the schedule payload shapes.
func (h *Handlers) Example(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	oneShotAt := now.Add(2 * time.Hour)

	examples := []*store.Task{
		{
			ID:      "example-interval",
			Kind:    store.TaskKindInterval,
			Trigger: store.Trigger{IntervalSeconds: 3600},
			Payload: map[string]any{"message": "hourly check-in"},
			Enabled: true,
		},
		{
			ID:      "example-daily-at",
			Kind:    store.TaskKindReminder,
			Trigger: store.Trigger{DailyAt: "09:00", Timezone: "America/New_York"},
			Payload: map[string]any{"message": "good morning"},
			Enabled: true,
		},
		{
			ID:      "example-one-shot",
			Kind:    store.TaskKindOneShot,
			Trigger: store.Trigger{AtTimestamp: &oneShotAt},
			Payload: map[string]any{"message": "one-time reminder"},
			Enabled: true,
		},
		{
			ID:      "example-cron",
			Kind:    store.TaskKindCron,
			Trigger: store.Trigger{CronExpr: "0 17 * * 5", Timezone: "UTC"},
			Payload: map[string]any{"message": "weekly Friday wrap-up"},
			Enabled: true,
		},
		{
			ID:   "example-workflow",
			Kind: store.TaskKindWorkflow,
			Trigger: store.Trigger{IntervalSeconds: 900},
			Steps: []store.WorkflowStep{
				{Action: store.StepFetch, Key: "source_url"},
				{Action: store.StepNotify, When: `source.price < 100`, Message: "price dropped to {source.price}"},
			},
			Payload: map[string]any{"source_url": "https://example.invalid/price"},
			Enabled: true,
		},
	}

	views := make([]api.TaskView, 0, len(examples))
	for _, t := range examples {
		views = append(views, taskView(t))
	}
	h.respondJSON(w, http.StatusOK, api.ExampleResponse{Examples: views})
}
