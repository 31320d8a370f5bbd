// Package store contains the entities and the Gateway interface for the
// Autonomy Core's Persistence Gateway. Concrete drivers live in
// internal/store/postgres (relational) and internal/store/kv (Redis).
package store

import (
	"encoding/json"
	"time"
)

// TaskKind enumerates the trigger family a Task belongs to.
type TaskKind string

const (
	TaskKindInterval TaskKind = "interval"
	TaskKindCron     TaskKind = "cron"
	TaskKindOneShot  TaskKind = "one_shot"
	TaskKindWorkflow TaskKind = "workflow"
	TaskKindReminder TaskKind = "reminder"
)

// Trigger holds exactly one of the trigger variants. Nothing validates
// this; when more than one is set, clock.NextFire uses the first of
// interval_seconds, daily_at, cron_expr and at_timestamp.
type Trigger struct {
	IntervalSeconds int64      `json:"interval_seconds,omitempty"`
	CronExpr        string     `json:"cron_expr,omitempty"`
	Timezone        string     `json:"timezone,omitempty"`
	AtTimestamp     *time.Time `json:"at_timestamp,omitempty"`
	// DailyAt is an "HH:MM" daily trigger, treated as a cron expression
	// per spec §4.1 ("at=HH:MM with tz treated as a daily cron").
	DailyAt string `json:"daily_at,omitempty"`
}

// WorkflowStepAction enumerates the closed set of workflow step kinds.
type WorkflowStepAction string

const (
	StepFetch    WorkflowStepAction = "fetch"
	StepSet      WorkflowStepAction = "set"
	StepSetState WorkflowStepAction = "set_state"
	StepNotify   WorkflowStepAction = "notify"
	StepToolCall WorkflowStepAction = "tool_call"
)

// WorkflowStep is one step of a workflow Task's body.
type WorkflowStep struct {
	Action  WorkflowStepAction `json:"action"`
	Key     string             `json:"key,omitempty"`
	Expr    string             `json:"expr,omitempty"`
	When    string             `json:"when,omitempty"`
	Target  string             `json:"target,omitempty"`
	Message string             `json:"message,omitempty"`
	Tool    string             `json:"tool,omitempty"`
	Server  string             `json:"server,omitempty"`
	Args    map[string]any     `json:"args,omitempty"`
}

// Task is a scheduled unit of work.
type Task struct {
	ID            string         `json:"id"`
	OwnerUser     string         `json:"owner_user"`
	Kind          TaskKind       `json:"kind"`
	Trigger       Trigger        `json:"trigger"`
	Enabled       bool           `json:"enabled"`
	Payload       map[string]any `json:"payload"`
	Steps         []WorkflowStep `json:"steps,omitempty"`
	State         map[string]any `json:"state,omitempty"`
	LastRunAt     *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time     `json:"next_run_at,omitempty"`
	LastResult    string         `json:"last_result,omitempty"`
	FailureCount  int            `json:"failure_count"`
	DisableReason string         `json:"disable_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ToolServerStatus enumerates the Process Supervisor FSM states (§4.3).
type ToolServerStatus string

const (
	ToolServerPending  ToolServerStatus = "pending"
	ToolServerStarting ToolServerStatus = "starting"
	ToolServerRunning  ToolServerStatus = "running"
	ToolServerFailed   ToolServerStatus = "failed"
	ToolServerStopped  ToolServerStatus = "stopped"
)

// ToolSchema describes one tool advertised by a ToolServer.
type ToolSchema struct {
	ServerName  string          `json:"server_name"`
	ToolName    string          `json:"tool_name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolServerSpec is the boot-time configuration for one supervised
// subprocess.
type ToolServerSpec struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// ToolServerState is the observable runtime state of a ToolServer, as
// reported by the Process Supervisor.
type ToolServerState struct {
	Spec            ToolServerSpec   `json:"spec"`
	Status          ToolServerStatus `json:"status"`
	Tools           []ToolSchema     `json:"tools"`
	LastError       string           `json:"last_error,omitempty"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	StartupDeadline time.Time        `json:"startup_deadline,omitempty"`
	RestartCount    int              `json:"restart_count"`
	StderrTail      string           `json:"stderr_tail,omitempty"`
}

// AutonomyProfile tracks the Debate Dispatcher's per-user engagement
// state.
type AutonomyProfile struct {
	UserID            string     `json:"user_id"`
	EngagementScore   float64    `json:"engagement_score"`
	InitiativeLevel   float64    `json:"initiative_level"`
	LastProactiveAt   *time.Time `json:"last_proactive_at,omitempty"`
	MessagesSentToday int        `json:"messages_sent_today"`
	ProactiveDay      string     `json:"proactive_day"` // YYYY-MM-DD
	ErrorCountToday   int        `json:"error_count_today"`
	LastUserMessageAt *time.Time `json:"last_user_message_at,omitempty"`
	MaxDailyProactive int        `json:"max_daily_proactive"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ClampScores clamps EngagementScore and InitiativeLevel to [0.1, 1.0]
// per the AutonomyProfile invariant in spec §3.
func (p *AutonomyProfile) ClampScores() {
	p.EngagementScore = clamp(p.EngagementScore, 0.1, 1.0)
	p.InitiativeLevel = clamp(p.InitiativeLevel, 0.1, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EmotionalState tracks a user's mood, supplemented from
// original_source per SPEC_FULL.md.
type EmotionalState struct {
	UserID        string    `json:"user_id"`
	CurrentMood   string    `json:"current_mood"`
	MoodIntensity float64   `json:"mood_intensity"`
	LastUpdated   time.Time `json:"last_updated"`
	ShiftDate     string    `json:"shift_date"`
	ShiftsToday   int       `json:"shifts_today"`
}

// AutonomyReflection is the output of the daily reflection job,
// supplemented from original_source per SPEC_FULL.md.
type AutonomyReflection struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	ReflectionDate       string    `json:"reflection_date"`
	EngagementTrend      string    `json:"engagement_trend"`
	InitiativeAdjustment float64   `json:"initiative_adjustment"`
	Notes                string    `json:"notes"`
	Confidence           float64   `json:"confidence"`
	CreatedAt            time.Time `json:"created_at"`
}

// DecisionEvent is one row of the append-only decision log.
type DecisionEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	UserID    string         `json:"user_id"`
	Source    string         `json:"source"`
	Summary   string         `json:"summary"`
	Details   map[string]any `json:"details,omitempty"`
}

// ReinforcementEvent is one row of the append-only reinforcement stream.
type ReinforcementEvent struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	UserID    string             `json:"user_id"`
	Score     float64            `json:"score"`
	Flags     ReinforcementFlags `json:"flags"`
	Reasoning string             `json:"reasoning"`
}

// ReinforcementFlags are the independent booleans attached to a
// ReinforcementEvent.
type ReinforcementFlags struct {
	TaskSucceeded      bool `json:"task_succeeded"`
	Concise            bool `json:"concise"`
	Helpful            bool `json:"helpful"`
	EmotionallyAligned bool `json:"emotionally_aligned"`
}

// DebateTrace is the record of one action_request's Planner/Skeptic/
// Verifier/Execute pipeline.
type DebateTrace struct {
	RequestID      string        `json:"request_id"`
	Plan           string        `json:"plan"`
	PlanSteps      []PlanStep    `json:"plan_steps"`
	SkepticNotes   string        `json:"skeptic_notes"`
	VerifierResult string        `json:"verifier_result"` // approve|revise|reject
	FinalActions   []PlanStep    `json:"final_actions"`
	Elapsed        time.Duration `json:"elapsed"`
}

// PlanStep is one proposed (tool, args) pair or a "reply" step.
type PlanStep struct {
	Tool   string         `json:"tool"`
	Server string         `json:"server"`
	Args   map[string]any `json:"args"`
	Reply  string         `json:"reply,omitempty"`
	Done   bool           `json:"done,omitempty"`
}

// ProactiveSlot identifies one of up to three daily proactive-contact
// opportunities for a user.
type ProactiveSlot struct {
	UserID string
	Day    string // YYYY-MM-DD
	Slot   int    // 1..3
}
