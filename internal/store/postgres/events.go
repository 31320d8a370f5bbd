package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"autonomy-core/internal/store"
)

// AppendDecision inserts one row into the append-only decision log.
func (g *Gateway) AppendDecision(ctx context.Context, ev store.DecisionEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return err
	}
	var userID any
	if ev.UserID != "" {
		userID = ev.UserID
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO decision_logs (decision_id, timestamp, event_type, user_id, source, summary, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.Timestamp, ev.EventType, userID, ev.Source, ev.Summary, details)
	if err != nil {
		return fmt.Errorf("append decision event: %w", err)
	}
	return nil
}

// AppendReinforcement inserts one row into the append-only reinforcement
// stream.
func (g *Gateway) AppendReinforcement(ctx context.Context, ev store.ReinforcementEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	reasoning, err := json.Marshal(ev.Reasoning)
	if err != nil {
		return err
	}
	var userID any
	if ev.UserID != "" {
		userID = ev.UserID
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO reinforcement_events (reinforcement_id, timestamp, user_id, score, label,
			task_succeeded, concise, helpful, emotionally_aligned, reasoning)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ev.ID, ev.Timestamp, userID, ev.Score, "",
		ev.Flags.TaskSucceeded, ev.Flags.Concise, ev.Flags.Helpful, ev.Flags.EmotionallyAligned, reasoning)
	if err != nil {
		return fmt.Errorf("append reinforcement event: %w", err)
	}
	return nil
}
