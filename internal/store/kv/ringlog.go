package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"autonomy-core/internal/store"
)

// MirrorDecision pushes a JSON copy of a decision event onto the
// her:decision:logs ring buffer, capped to ringBufferMaxLen entries so
// operators can tail recent activity without a database round trip.
// The Postgres row inserted by postgres.Gateway.AppendDecision remains
// the durable record; this is a bounded, best-effort mirror.
func (s *Store) MirrorDecision(ctx context.Context, ev store.DecisionEvent) error {
	return s.pushRingBuffer(ctx, keyDecisionLogs, ev)
}

// MirrorReinforcement mirrors a reinforcement event the same way.
func (s *Store) MirrorReinforcement(ctx context.Context, ev store.ReinforcementEvent) error {
	return s.pushRingBuffer(ctx, keyReinforcementEvents, ev)
}

// MirrorLog appends a raw structured log line to her:logs, used by the
// admin API's tail-recent-logs endpoint.
func (s *Store) MirrorLog(ctx context.Context, line []byte) error {
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, keyLogs, line)
	pipe.LTrim(ctx, keyLogs, 0, ringBufferMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror log line: %w", err)
	}
	return nil
}

// RecentDecisions returns up to n of the most recently mirrored
// decision events, newest first.
func (s *Store) RecentDecisions(ctx context.Context, n int64) ([]store.DecisionEvent, error) {
	raw, err := s.rdb.LRange(ctx, keyDecisionLogs, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("recent decisions: %w", err)
	}
	events := make([]store.DecisionEvent, 0, len(raw))
	for _, r := range raw {
		var ev store.DecisionEvent
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *Store) pushRingBuffer(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, ringBufferMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push ring buffer %s: %w", key, err)
	}
	return nil
}
