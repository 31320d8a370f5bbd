package debate

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"autonomy-core/internal/llm"
	"autonomy-core/internal/store"
)

// plan runs the Planner stage: produce a bounded sequence of proposed
// (tool, args) or "reply" steps for goal, per §4.7 step 1.
func (d *Dispatcher) plan(ctx context.Context, goal string, constraints map[string]any) ([]store.PlanStep, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "debate.plan", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if d.llmClient == nil {
		return []store.PlanStep{{Reply: "I don't have a planner configured to handle that.", Done: true}}, nil
	}

	prompt := "Produce a JSON array of at most " + strconv.Itoa(d.cfg.MaxSteps) + " plan steps to accomplish the goal below. " +
		"Each step is an object with either {\"tool\":\"...\",\"server\":\"...\",\"args\":{...}} or {\"reply\":\"...\",\"done\":true}. " +
		"Reference only tools that a running server would advertise; do not invent tool names speculatively. " +
		"Return strict JSON array only, no markdown.\n" +
		"Goal: " + goal + "\n" +
		"Constraints: " + mustMarshal(constraints)

	text, _, err := d.llmClient.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a deterministic action planner for an automation assistant."},
			{Role: "user", Content: prompt},
		},
		Deadline: time.Now().Add(d.cfg.StepDeadline),
	})
	if err != nil {
		return nil, err
	}

	var steps []store.PlanStep
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &steps); err != nil {
		return nil, err
	}
	if len(steps) > d.cfg.MaxSteps {
		steps = steps[:d.cfg.MaxSteps]
	}
	return steps, nil
}
