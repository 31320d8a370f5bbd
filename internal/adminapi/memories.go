package adminapi

import (
	"encoding/json"
	"net/http"

	"autonomy-core/pkg/api"
)

// AddMemory handles POST /admin/memories.
func (h *Handlers) AddMemory(w http.ResponseWriter, r *http.Request) {
	var req api.AddMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Text == "" {
		h.httpError(w, "user_id and text are required", http.StatusBadRequest)
		return
	}

	id, err := h.memory.Add(r.Context(), req.UserID, req.Text, req.Metadata)
	if err != nil {
		h.httpError(w, "failed to add memory", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, http.StatusOK, api.AddMemoryResponse{ID: id})
}

// SearchMemories handles POST /admin/memories/search.
func (h *Handlers) SearchMemories(w http.ResponseWriter, r *http.Request) {
	var req api.MemorySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		h.httpError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	hits, err := h.memory.Search(r.Context(), req.UserID, req.Query, req.K)
	if err != nil {
		h.httpError(w, "failed to search memories", http.StatusInternalServerError)
		return
	}

	views := make([]api.MemoryHitView, 0, len(hits))
	for _, hit := range hits {
		views = append(views, api.MemoryHitView{
			ID:       hit.ID,
			Text:     hit.Text,
			Score:    hit.Score,
			Metadata: hit.Metadata,
		})
	}
	h.respondJSON(w, http.StatusOK, api.MemorySearchResponse{Hits: views})
}
