package debate

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"autonomy-core/internal/llm"
	"autonomy-core/internal/store"
)

// skeptic runs the Skeptic stage: critique plan against §4.7's rules
// (no destructive filesystem ops outside the sandbox, no network calls
// without an "internet" capability, cost under budget) and return
// either the unchanged plan or a revised one. Failures to reach the LLM
// fall back to returning the plan unchanged rather than blocking the
// pipeline on a Skeptic outage; the Verifier stage is the hard gate.
func (d *Dispatcher) skeptic(ctx context.Context, plan []store.PlanStep) ([]store.PlanStep, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "debate.skeptic", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if d.llmClient == nil || len(plan) == 0 {
		return plan, nil
	}

	prompt := "Critique this action plan for an automation assistant. " +
		"Reject steps that touch the filesystem outside " + d.cfg.SandboxWorkspace + ", " +
		"reject steps that require network access unless clearly necessary, " +
		"and flag anything with disproportionate cost for the stated goal. " +
		"Return the plan, revised if needed, as a strict JSON array in the same step shape. No markdown.\n" +
		"Plan: " + mustMarshal(plan)

	text, _, err := d.llmClient.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a cautious plan critic for an automation assistant."},
			{Role: "user", Content: prompt},
		},
		Deadline: time.Now().Add(d.cfg.StepDeadline),
	})
	if err != nil {
		return plan, nil
	}

	var revised []store.PlanStep
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &revised); err != nil || len(revised) == 0 {
		return plan, nil
	}
	return revised, nil
}
