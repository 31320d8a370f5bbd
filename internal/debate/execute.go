package debate

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/store"
)

// execute runs the Execute stage: dispatch approved steps through the
// Capability Router with a per-step deadline, emitting a DecisionEvent
// per step. A "reply" step supplies the user-facing text; the loop ends
// at the first step marked done, when a step fails irrecoverably, or
// when the plan runs out.
func (d *Dispatcher) execute(ctx context.Context, userID, requestID string, plan []store.PlanStep) ([]store.PlanStep, string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "debate.execute", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	final := make([]store.PlanStep, 0, len(plan))
	reply := "Done."

	for i, step := range plan {
		if step.Reply != "" {
			reply = step.Reply
			final = append(final, step)
			_ = d.gateway.AppendDecision(ctx, store.DecisionEvent{
				EventType: "action_step",
				UserID:    userID,
				Source:    "debate",
				Summary:   "reply step",
				Details:   map[string]any{"request_id": requestID, "step": i},
			})
			if step.Done {
				break
			}
			continue
		}

		if err := d.limiterFor(userID).Wait(ctx); err != nil {
			return final, "I ran into a problem completing that.", err
		}

		result, err := d.callWithRetry(ctx, step)
		final = append(final, step)

		details := map[string]any{"request_id": requestID, "step": i, "tool": step.Tool, "server": step.Server}
		if err != nil {
			details["error"] = err.Error()
			_ = d.gateway.AppendDecision(ctx, store.DecisionEvent{
				EventType: "action_step",
				UserID:    userID,
				Source:    "debate",
				Summary:   "tool step failed",
				Details:   details,
			})
			return final, "I ran into a problem completing that.", err
		}

		details["result"] = result
		_ = d.gateway.AppendDecision(ctx, store.DecisionEvent{
			EventType: "action_step",
			UserID:    userID,
			Source:    "debate",
			Summary:   "tool step succeeded",
			Details:   details,
		})

		if step.Done {
			break
		}
	}

	return final, reply, nil
}

// callWithRetry retries once with a fresh deadline on a transient
// failure, per §4.7's "transient failures are retried once" rule.
func (d *Dispatcher) callWithRetry(ctx context.Context, step store.PlanStep) (map[string]any, error) {
	deadline := time.Now().Add(d.cfg.StepDeadline)
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("tool.name", step.Tool), attribute.String("tool.server", step.Server))

	result, err := d.registry.Call(ctx, step.Server, step.Tool, step.Args, deadline)
	if err == nil {
		return result, nil
	}
	if !isTransient(err) {
		return nil, err
	}
	return d.registry.Call(ctx, step.Server, step.Tool, step.Args, time.Now().Add(d.cfg.StepDeadline))
}

func isTransient(err error) bool {
	var ae *apperr.Error
	return errors.As(err, &ae) && ae.Kind == apperr.KindTransient
}
