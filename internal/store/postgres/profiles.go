package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"autonomy-core/internal/store"
)

// SaveProfile upserts an AutonomyProfile.
func (g *Gateway) SaveProfile(ctx context.Context, p *store.AutonomyProfile) error {
	var proactiveDay any
	if p.ProactiveDay != "" {
		proactiveDay = p.ProactiveDay
	}
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO autonomy_profiles (user_id, engagement_score, initiative_level, last_proactive_at,
			messages_sent_today, proactive_day, error_count_today, last_user_message_at,
			max_daily_proactive, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id) DO UPDATE SET
			engagement_score = EXCLUDED.engagement_score,
			initiative_level = EXCLUDED.initiative_level,
			last_proactive_at = EXCLUDED.last_proactive_at,
			messages_sent_today = EXCLUDED.messages_sent_today,
			proactive_day = EXCLUDED.proactive_day,
			error_count_today = EXCLUDED.error_count_today,
			last_user_message_at = EXCLUDED.last_user_message_at,
			max_daily_proactive = EXCLUDED.max_daily_proactive,
			updated_at = now()
	`, p.UserID, p.EngagementScore, p.InitiativeLevel, p.LastProactiveAt,
		p.MessagesSentToday, proactiveDay, p.ErrorCountToday, p.LastUserMessageAt,
		p.MaxDailyProactive)
	if err != nil {
		return fmt.Errorf("save autonomy profile %s: %w", p.UserID, err)
	}
	return nil
}

// LoadProfile loads one user's AutonomyProfile, or returns a fresh
// default profile (per spec §3's default construction rule) if none
// exists yet.
func (g *Gateway) LoadProfile(ctx context.Context, userID string) (*store.AutonomyProfile, error) {
	var p store.AutonomyProfile
	var proactiveDay sql.NullString
	err := g.db.QueryRowContext(ctx, `
		SELECT user_id, engagement_score, initiative_level, last_proactive_at,
			messages_sent_today, proactive_day, error_count_today, last_user_message_at,
			max_daily_proactive, updated_at
		FROM autonomy_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.EngagementScore, &p.InitiativeLevel, &p.LastProactiveAt,
		&p.MessagesSentToday, &proactiveDay, &p.ErrorCountToday, &p.LastUserMessageAt,
		&p.MaxDailyProactive, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.AutonomyProfile{
			UserID:            userID,
			EngagementScore:   0.5,
			InitiativeLevel:   0.5,
			MaxDailyProactive: 3,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load autonomy profile %s: %w", userID, err)
	}
	p.ProactiveDay = proactiveDay.String
	return &p, nil
}

// ClaimProactiveSlot attempts to atomically claim one of the up-to-three
// daily proactive slots for a user via a unique-index insert into
// proactive_daily_slots, per the Open Question resolution in
// SPEC_FULL.md: a unique constraint violation means the slot is taken,
// not an error.
func (g *Gateway) ClaimProactiveSlot(ctx context.Context, slot store.ProactiveSlot) (bool, error) {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO proactive_daily_slots (user_id, day_bucket, slot)
		VALUES ($1, $2, $3)
	`, slot.UserID, slot.Day, slot.Slot)
	if err == nil {
		return true, nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return false, nil
	}
	return false, fmt.Errorf("claim proactive slot for %s: %w", slot.UserID, err)
}
