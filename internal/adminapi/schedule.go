package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"autonomy-core/internal/intent"
	"autonomy-core/pkg/api"
)

// ListSchedule handles GET /admin/schedule.
func (h *Handlers) ListSchedule(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.scheduler.ListTasks(r.Context())
	if err != nil {
		h.httpError(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	views := make([]api.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView(t))
	}
	h.respondJSON(w, http.StatusOK, api.ListTasksResponse{Tasks: views})
}

// AddSchedule handles POST /admin/schedule: the message is routed
// through the Intent Classifier and, if it resolves to schedule_add,
// persisted as a new task.
func (h *Handlers) AddSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Message == "" {
		h.httpError(w, "user_id and message are required", http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	result, err := h.intent.Classify(ctx, req.UserID, req.Message, req.Timezone, "")
	if err != nil {
		h.httpError(w, "failed to classify message", http.StatusInternalServerError)
		return
	}
	if result.Kind != intent.KindScheduleAdd {
		h.httpError(w, "message did not resolve to a schedule request", http.StatusUnprocessableEntity)
		return
	}

	t, err := h.scheduler.AddTaskFromIntent(ctx, result)
	if err != nil {
		if errors.Is(err, intent.AmbiguousIntent()) {
			h.httpError(w, "schedule request is ambiguous", http.StatusUnprocessableEntity)
			return
		}
		h.httpError(w, "failed to persist task", http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, api.AddTaskResponse{Task: taskView(t)})
}

// RunSchedule handles POST /admin/schedule/{id}/run.
func (h *Handlers) RunSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.scheduler.RunNow(r.Context(), id); err != nil {
		h.httpError(w, "failed to run task", http.StatusNotFound)
		return
	}
	h.respondJSON(w, http.StatusOK, api.RunTaskResponse{TaskID: id, Ran: true})
}

// SetScheduleEnabled handles PUT /admin/schedule/{id}/enabled.
func (h *Handlers) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req api.SetTaskEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.scheduler.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		h.httpError(w, "failed to update task", http.StatusNotFound)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": req.Enabled})
}

// DeleteSchedule handles DELETE /admin/schedule/{id}.
func (h *Handlers) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.scheduler.DeleteTask(r.Context(), id); err != nil {
		h.httpError(w, "failed to delete task", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
