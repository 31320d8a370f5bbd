package adminapi

import (
	"net/http"

	"autonomy-core/internal/store"
)

// mcpServerView is one row of the /admin/mcp response: a tool server's
// runtime state plus the schemas it currently advertises.
type mcpServerView struct {
	Name         string             `json:"name"`
	Status       string             `json:"status"`
	RestartCount int                `json:"restart_count"`
	LastError    string             `json:"last_error,omitempty"`
	Tools        []store.ToolSchema `json:"tools"`
}

// MCP handles GET /admin/mcp: the Process Supervisor's per-server state
// merged with the Tool Registry's cached schemas.
func (h *Handlers) MCP(w http.ResponseWriter, r *http.Request) {
	states := h.supervisor.States()
	schemas := h.registry.Schemas()

	byServer := map[string][]store.ToolSchema{}
	for _, s := range schemas {
		byServer[s.ServerName] = append(byServer[s.ServerName], s)
	}

	views := make([]mcpServerView, 0, len(states))
	for _, s := range states {
		views = append(views, mcpServerView{
			Name:         s.Spec.Name,
			Status:       string(s.Status),
			RestartCount: s.RestartCount,
			LastError:    s.LastError,
			Tools:        byServer[s.Spec.Name],
		})
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"servers": views})
}
