package adminapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"autonomy-core/internal/store"
	"autonomy-core/pkg/api"
)

// defaultProfile is returned when a user has no persisted
// AutonomyProfile yet: neutral starting engagement/initiative and an
// up-to-three-daily-proactive-contacts cap.
var defaultProfile = store.AutonomyProfile{
	EngagementScore:   0.5,
	InitiativeLevel:   0.5,
	MaxDailyProactive: 3,
}

// Personality handles GET /admin/personality/{user_id}: the current
// AutonomyProfile driving the Debate Dispatcher's Reinforce stage.
func (h *Handlers) Personality(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		h.httpError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	profile, err := h.gateway.LoadProfile(r.Context(), userID)
	if err != nil {
		h.httpError(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		profile = &defaultProfile
	}

	h.respondJSON(w, http.StatusOK, api.PersonalityResponse{
		UserID:            userID,
		EngagementScore:   profile.EngagementScore,
		InitiativeLevel:   profile.InitiativeLevel,
		MaxDailyProactive: profile.MaxDailyProactive,
	})
}
