// Package debate implements the Debate Dispatcher: Planner → Skeptic →
// Verifier → Execute → Reinforce for action_request intents, emitting
// one OTel span per pipeline stage via
// tracer.Start(..., trace.WithSpanKind(...)).
package debate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/llm"
	"autonomy-core/internal/store"
)

const tracerName = "debate-dispatcher"

// ToolCaller is the Capability Router surface the Execute stage needs.
type ToolCaller interface {
	Call(ctx context.Context, server, tool string, args map[string]any, deadline time.Time) (map[string]any, error)
}

// Gateway is the subset of the Persistence Gateway the dispatcher needs
// for events and the AutonomyProfile it mutates.
type Gateway interface {
	AppendDecision(ctx context.Context, ev store.DecisionEvent) error
	AppendReinforcement(ctx context.Context, ev store.ReinforcementEvent) error
	LoadProfile(ctx context.Context, userID string) (*store.AutonomyProfile, error)
	SaveProfile(ctx context.Context, p *store.AutonomyProfile) error
}

// Config holds the dispatcher's tunables (§4.7, §5).
type Config struct {
	MaxSteps           int
	StepDeadline       time.Duration
	ReinforcementClamp float64
	SandboxWorkspace   string

	// StepsPerMinute caps how many tool-call steps a single user's
	// action plans may drive per minute, sharing the same token-bucket
	// shape the config layer names telegram_public_rate_limit_per_minute
	// after: with no chat transport wired yet, this is where that budget
	// actually throttles outbound activity.
	StepsPerMinute int
}

// Dispatcher is the Debate Dispatcher.
type Dispatcher struct {
	llmClient llm.Client
	registry  ToolCaller
	gateway   Gateway
	log       *slog.Logger
	cfg       Config

	stepRate rate.Limit
	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Dispatcher. cfg zero values apply defaults
// (MaxSteps=16, StepDeadline=60s, ReinforcementClamp=0.05,
// SandboxWorkspace=/workspace, StepsPerMinute=20).
func New(llmClient llm.Client, registry ToolCaller, gateway Gateway, log *slog.Logger, cfg Config) *Dispatcher {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 16
	}
	if cfg.StepDeadline <= 0 {
		cfg.StepDeadline = 60 * time.Second
	}
	if cfg.ReinforcementClamp <= 0 {
		cfg.ReinforcementClamp = 0.05
	}
	if cfg.SandboxWorkspace == "" {
		cfg.SandboxWorkspace = "/workspace"
	}
	if cfg.StepsPerMinute <= 0 {
		cfg.StepsPerMinute = 20
	}
	return &Dispatcher{
		llmClient: llmClient,
		registry:  registry,
		gateway:   gateway,
		log:       log,
		cfg:       cfg,
		stepRate:  rate.Limit(float64(cfg.StepsPerMinute) / 60),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// limiterFor returns userID's per-user step-rate limiter, creating one
// with a burst of 1 on first use.
func (d *Dispatcher) limiterFor(userID string) *rate.Limiter {
	d.limMu.Lock()
	defer d.limMu.Unlock()
	l, ok := d.limiters[userID]
	if !ok {
		l = rate.NewLimiter(d.stepRate, 1)
		d.limiters[userID] = l
	}
	return l
}

// Outcome summarizes what happened for the Reinforce stage.
type Outcome struct {
	Succeeded          bool
	Concise            bool
	Helpful            bool
	EmotionallyAligned bool
	Reasoning          string
}

// Handle runs the full pipeline for one action_request and returns a
// user-facing reply plus the DebateTrace recorded for it.
func (d *Dispatcher) Handle(ctx context.Context, userID, goal string, constraints map[string]any) (string, store.DebateTrace, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "debate.handle",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.String("goal", goal)),
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	start := time.Now()
	requestID := requestIDFrom(ctx)

	plan, err := d.plan(ctx, goal, constraints)
	if err != nil {
		return d.rejectWithApology(ctx, userID, requestID, "planner failed", err)
	}

	plan, err = d.skeptic(ctx, plan)
	if err != nil {
		return d.rejectWithApology(ctx, userID, requestID, "skeptic failed", err)
	}

	nonApprovals := 0
	var verdict verifierVerdict
	for attempt := 0; attempt < 2; attempt++ {
		verdict, err = d.verify(ctx, plan)
		if err != nil {
			return d.rejectWithApology(ctx, userID, requestID, "verifier failed", err)
		}
		if verdict.result == resultApprove {
			break
		}
		nonApprovals++
		if verdict.result == resultReject || nonApprovals >= 2 {
			verdict.result = resultReject
			break
		}
		// One revise-and-recheck pass: the verifier's own mechanical
		// revision (dropping the offending step) is what gets rechecked.
		plan = verdict.revisedPlan
	}

	_ = d.gateway.AppendDecision(ctx, store.DecisionEvent{
		EventType: "verifier_result",
		UserID:    userID,
		Source:    "debate",
		Summary:   fmt.Sprintf("verifier result: %s", verdict.result),
		Details:   map[string]any{"request_id": requestID, "notes": verdict.notes},
	})

	if verdict.result != resultApprove {
		return d.rejectWithApology(ctx, userID, requestID, "verifier rejected the plan", nil)
	}

	finalActions, reply, execErr := d.execute(ctx, userID, requestID, plan)

	outcome := Outcome{
		Succeeded: execErr == nil,
		Concise:   len(reply) < 400,
		Helpful:   execErr == nil,
		Reasoning: reasoningFor(execErr),
	}
	d.reinforce(ctx, userID, outcome)

	dtrace := store.DebateTrace{
		RequestID:      requestID,
		Plan:           goal,
		PlanSteps:      plan,
		SkepticNotes:   verdict.notes,
		VerifierResult: string(verdict.result),
		FinalActions:   finalActions,
		Elapsed:        time.Since(start),
	}

	if execErr != nil {
		return reply, dtrace, execErr
	}
	return reply, dtrace, nil
}

func (d *Dispatcher) rejectWithApology(ctx context.Context, userID, requestID, reason string, cause error) (string, store.DebateTrace, error) {
	_ = d.gateway.AppendDecision(ctx, store.DecisionEvent{
		EventType: "verifier_result",
		UserID:    userID,
		Source:    "debate",
		Summary:   reason,
		Details:   map[string]any{"request_id": requestID},
	})
	return "I'm sorry, I can't do that right now.", store.DebateTrace{
		RequestID:      requestID,
		VerifierResult: string(resultReject),
	}, apperr.Safety(requestID, reason)
}

func reasoningFor(err error) string {
	if err == nil {
		return "completed successfully"
	}
	return err.Error()
}

// requestIDFrom derives a stable id for the trace from the active span
// context when present, else a fresh one.
func requestIDFrom(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

// extractJSONObject returns the outermost JSON object or array span
// (whichever opens first) when the model wraps its JSON in prose or a
// fenced code block.
func extractJSONObject(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if open := strings.Index(text, "["); open != -1 && (start == -1 || open < start) {
		start, end = open, strings.LastIndex(text, "]")
	}
	if start == -1 || end == -1 || end <= start {
		return "{}"
	}
	return text[start : end+1]
}

func mustMarshal(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
