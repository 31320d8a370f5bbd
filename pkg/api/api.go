// Package api contains shared JSON request/response structs, imported
// by both autonomyctl and autonomyd's admin HTTP surface so the wire
// shape only needs defining once.
package api

import "time"

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusResponse is the response body for GET /admin/status.
type StatusResponse struct {
	Healthy      bool             `json:"healthy"`
	SchedulerLag string           `json:"scheduler_lag,omitempty"`
	ToolServers  []ToolServerView `json:"tool_servers"`
	UpcomingJobs int              `json:"upcoming_jobs"`
}

// ToolServerView is one row of the tool server status list.
type ToolServerView struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	Tools        int    `json:"tools"`
	RestartCount int    `json:"restart_count"`
	LastError    string `json:"last_error,omitempty"`
}

// TaskView is a Task rendered for the admin API and autonomyctl.
type TaskView struct {
	ID            string         `json:"id"`
	OwnerUser     string         `json:"owner_user"`
	Kind          string         `json:"kind"`
	Enabled       bool           `json:"enabled"`
	Trigger       map[string]any `json:"trigger"`
	Payload       map[string]any `json:"payload,omitempty"`
	LastRunAt     *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time     `json:"next_run_at,omitempty"`
	LastResult    string         `json:"last_result,omitempty"`
	FailureCount  int            `json:"failure_count"`
	DisableReason string         `json:"disable_reason,omitempty"`
}

// ListTasksResponse is the response body for GET /admin/schedule.
type ListTasksResponse struct {
	Tasks []TaskView `json:"tasks"`
}

// AddTaskRequest is the request body for POST /admin/schedule, adding a
// task from a natural-language description routed through the Intent
// Classifier.
type AddTaskRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Timezone string `json:"timezone,omitempty"`
}

// AddTaskResponse is the response body after a schedule_add intent is
// resolved into a persisted task.
type AddTaskResponse struct {
	Task TaskView `json:"task"`
}

// SetTaskEnabledRequest is the request body for PUT /admin/schedule/{id}/enabled.
type SetTaskEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// RunTaskResponse acknowledges a manual run trigger.
type RunTaskResponse struct {
	TaskID string `json:"task_id"`
	Ran    bool   `json:"ran"`
}

// MemorySearchRequest is the request body for POST /admin/memories/search.
type MemorySearchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	K      int    `json:"k,omitempty"`
}

// MemoryHitView mirrors internal/memory.Hit for the wire format.
type MemoryHitView struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MemorySearchResponse is the response body for a memory search.
type MemorySearchResponse struct {
	Hits []MemoryHitView `json:"hits"`
}

// AddMemoryRequest is the request body for POST /admin/memories.
type AddMemoryRequest struct {
	UserID   string         `json:"user_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AddMemoryResponse acknowledges a memory write.
type AddMemoryResponse struct {
	ID string `json:"id"`
}

// PersonalityResponse is the response body for GET /admin/personality/{user_id}.
type PersonalityResponse struct {
	UserID          string  `json:"user_id"`
	EngagementScore float64 `json:"engagement_score"`
	InitiativeLevel float64 `json:"initiative_level"`
	MaxDailyProactive int   `json:"max_daily_proactive"`
}

// ResetRequest is the request body for POST /admin/reset.
type ResetRequest struct {
	UserID string `json:"user_id"`
	Scope  string `json:"scope"` // "profile" | "schedule" | "memories" | "all"
}

// ExampleResponse is the response body for GET /admin/example, a
// worked schedule payload demonstrating each trigger kind.
type ExampleResponse struct {
	Examples []TaskView `json:"examples"`
}
