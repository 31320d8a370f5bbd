// Package adminapi implements the HTTP surface autonomyctl and the
// (out-of-scope) chat transport's admin commands use: status, schedule
// CRUD, mcp status, memories, personality, reset, and example. Its
// Handlers struct and respondJSON/httpError helpers generalize the
// teacher's internal/controller/handlers package from a job-queue API
// to an operator/automation admin surface.
package adminapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"autonomy-core/internal/debate"
	"autonomy-core/internal/intent"
	"autonomy-core/internal/memory"
	"autonomy-core/internal/scheduler"
	"autonomy-core/internal/store"
	"autonomy-core/internal/supervisor"
	"autonomy-core/internal/toolregistry"
	"autonomy-core/pkg/api"
)

// SchedulerAPI is the subset of *scheduler.Engine the handlers need.
type SchedulerAPI interface {
	ListTasks(ctx context.Context) ([]*store.Task, error)
	DeleteTask(ctx context.Context, id string) error
	RunNow(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	AddTaskFromIntent(ctx context.Context, r intent.Result) (*store.Task, error)
}

// SupervisorAPI is the subset of *supervisor.Supervisor the handlers need.
type SupervisorAPI interface {
	States() []store.ToolServerState
}

// IntentAPI is the subset of *intent.Classifier the handlers need to
// resolve a natural-language schedule_add request.
type IntentAPI interface {
	Classify(ctx context.Context, userID, message, userTimezone, lastLanguage string) (intent.Result, error)
}

var (
	_ SchedulerAPI  = (*scheduler.Engine)(nil)
	_ SupervisorAPI = (*supervisor.Supervisor)(nil)
	_ IntentAPI     = (*intent.Classifier)(nil)
)

// Handlers holds every HTTP handler and its dependencies.
type Handlers struct {
	scheduler  SchedulerAPI
	supervisor SupervisorAPI
	registry   *toolregistry.Registry
	gateway    store.Gateway
	memory     memory.Store
	intent     IntentAPI
	debate     *debate.Dispatcher
	log        *slog.Logger
}

// New builds a Handlers instance with the given dependencies.
func New(sched SchedulerAPI, sup SupervisorAPI, registry *toolregistry.Registry, gw store.Gateway, mem memory.Store, in IntentAPI, deb *debate.Dispatcher, log *slog.Logger) *Handlers {
	return &Handlers{
		scheduler:  sched,
		supervisor: sup,
		registry:   registry,
		gateway:    gw,
		memory:     mem,
		intent:     in,
		debate:     deb,
		log:        log,
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Error("encode response failed", slog.Any("err", err))
		}
	}
}

func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJSON(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// Healthz is a liveness probe.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Readyz checks the Persistence Gateway is reachable.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Ping(r.Context()); err != nil {
		h.httpError(w, "gateway unavailable", http.StatusServiceUnavailable)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func taskView(t *store.Task) api.TaskView {
	return api.TaskView{
		ID:            t.ID,
		OwnerUser:     t.OwnerUser,
		Kind:          string(t.Kind),
		Enabled:       t.Enabled,
		Trigger:       triggerView(t.Trigger),
		Payload:       t.Payload,
		LastRunAt:     t.LastRunAt,
		NextRunAt:     t.NextRunAt,
		LastResult:    t.LastResult,
		FailureCount:  t.FailureCount,
		DisableReason: t.DisableReason,
	}
}

func triggerView(tr store.Trigger) map[string]any {
	out := map[string]any{}
	if tr.IntervalSeconds > 0 {
		out["interval_seconds"] = tr.IntervalSeconds
	}
	if tr.CronExpr != "" {
		out["cron_expr"] = tr.CronExpr
	}
	if tr.Timezone != "" {
		out["timezone"] = tr.Timezone
	}
	if tr.AtTimestamp != nil {
		out["at_timestamp"] = tr.AtTimestamp
	}
	if tr.DailyAt != "" {
		out["daily_at"] = tr.DailyAt
	}
	return out
}
