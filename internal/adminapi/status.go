package adminapi

import (
	"net/http"

	"autonomy-core/pkg/api"
)

// Status handles GET /admin/status: liveness plus a snapshot of every
// supervised tool server and the size of the upcoming-jobs set.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	states := h.supervisor.States()
	views := make([]api.ToolServerView, 0, len(states))
	for _, s := range states {
		views = append(views, api.ToolServerView{
			Name:         s.Spec.Name,
			Status:       string(s.Status),
			Tools:        len(s.Tools),
			RestartCount: s.RestartCount,
			LastError:    s.LastError,
		})
	}

	tasks, err := h.scheduler.ListTasks(ctx)
	if err != nil {
		h.httpError(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	upcoming := 0
	for _, t := range tasks {
		if t.Enabled && t.NextRunAt != nil {
			upcoming++
		}
	}

	healthy := true
	for _, s := range states {
		if s.Status == "failed" {
			healthy = false
		}
	}

	h.respondJSON(w, http.StatusOK, api.StatusResponse{
		Healthy:      healthy,
		ToolServers:  views,
		UpcomingJobs: upcoming,
	})
}
