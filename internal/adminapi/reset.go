package adminapi

import (
	"encoding/json"
	"net/http"

	"autonomy-core/internal/store"
	"autonomy-core/pkg/api"
)

// Reset handles POST /admin/reset: clears one user's profile, schedule,
// or memories (or all three), for operator-triggered troubleshooting.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		h.httpError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	resetProfile := req.Scope == "profile" || req.Scope == "all"
	resetSchedule := req.Scope == "schedule" || req.Scope == "all"
	resetMemories := req.Scope == "memories" || req.Scope == "all"
	if !resetProfile && !resetSchedule && !resetMemories {
		h.httpError(w, "scope must be one of profile, schedule, memories, all", http.StatusBadRequest)
		return
	}

	if resetProfile {
		if err := h.gateway.SaveProfile(ctx, &store.AutonomyProfile{
			UserID:            req.UserID,
			EngagementScore:   defaultProfile.EngagementScore,
			InitiativeLevel:   defaultProfile.InitiativeLevel,
			MaxDailyProactive: defaultProfile.MaxDailyProactive,
		}); err != nil {
			h.httpError(w, "failed to reset profile", http.StatusInternalServerError)
			return
		}
	}

	if resetSchedule {
		tasks, err := h.scheduler.ListTasks(ctx)
		if err != nil {
			h.httpError(w, "failed to load schedule", http.StatusInternalServerError)
			return
		}
		for _, t := range tasks {
			if t.OwnerUser != req.UserID {
				continue
			}
			if err := h.scheduler.DeleteTask(ctx, t.ID); err != nil {
				h.httpError(w, "failed to reset schedule", http.StatusInternalServerError)
				return
			}
		}
	}

	if resetMemories {
		hits, err := h.memory.Search(ctx, req.UserID, "", 1000)
		if err != nil {
			h.httpError(w, "failed to load memories", http.StatusInternalServerError)
			return
		}
		for _, hit := range hits {
			if err := h.memory.Delete(ctx, req.UserID, hit.ID); err != nil {
				h.httpError(w, "failed to reset memories", http.StatusInternalServerError)
				return
			}
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"user_id": req.UserID, "scope": req.Scope, "reset": true})
}
