package debate

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"autonomy-core/internal/store"
)

// reinforce runs the Reinforce stage (§4.7 step 5): score the outcome,
// append a ReinforcementEvent, and nudge the user's AutonomyProfile by
// at most d.cfg.ReinforcementClamp in either direction before clamping
// it back into the profile's valid range.
func (d *Dispatcher) reinforce(ctx context.Context, userID string, outcome Outcome) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "debate.reinforce", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	score := scoreOutcome(outcome)

	event := store.ReinforcementEvent{
		UserID: userID,
		Score:  score,
		Flags: store.ReinforcementFlags{
			TaskSucceeded:      outcome.Succeeded,
			Concise:            outcome.Concise,
			Helpful:            outcome.Helpful,
			EmotionallyAligned: outcome.EmotionallyAligned,
		},
		Reasoning: outcome.Reasoning,
	}
	if err := d.gateway.AppendReinforcement(ctx, event); err != nil {
		d.log.Warn("append reinforcement failed", slog.String("user_id", userID), slog.Any("err", err))
	}

	profile, err := d.gateway.LoadProfile(ctx, userID)
	if err != nil {
		d.log.Warn("load profile for reinforcement failed", slog.String("user_id", userID), slog.Any("err", err))
		return
	}
	if profile == nil {
		profile = &store.AutonomyProfile{UserID: userID, EngagementScore: 0.5, InitiativeLevel: 0.5}
	}

	delta := score * d.cfg.ReinforcementClamp
	profile.EngagementScore += delta
	profile.InitiativeLevel += delta
	profile.ClampScores()

	if err := d.gateway.SaveProfile(ctx, profile); err != nil {
		d.log.Warn("save profile after reinforcement failed", slog.String("user_id", userID), slog.Any("err", err))
	}
}

// scoreOutcome maps an Outcome to a value in [-1, 1]: every satisfied
// flag pulls the score up by an equal share, every unsatisfied one pulls
// it down.
func scoreOutcome(o Outcome) float64 {
	flags := []bool{o.Succeeded, o.Concise, o.Helpful, o.EmotionallyAligned}
	var sum float64
	for _, f := range flags {
		if f {
			sum++
		} else {
			sum--
		}
	}
	return sum / float64(len(flags))
}
