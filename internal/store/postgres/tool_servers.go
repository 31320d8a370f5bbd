package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"autonomy-core/internal/store"
)

// SaveToolServerState upserts a snapshot of one supervised subprocess,
// for status reporting to survive a controller restart. The live source
// of truth remains the in-memory Supervisor.
func (g *Gateway) SaveToolServerState(ctx context.Context, s store.ToolServerState) error {
	spec, err := json.Marshal(s.Spec)
	if err != nil {
		return err
	}
	tools, err := json.Marshal(s.Tools)
	if err != nil {
		return err
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO tool_server_states (name, spec, status, tools, last_error, started_at,
			restart_count, stderr_tail, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (name) DO UPDATE SET
			spec = EXCLUDED.spec,
			status = EXCLUDED.status,
			tools = EXCLUDED.tools,
			last_error = EXCLUDED.last_error,
			started_at = EXCLUDED.started_at,
			restart_count = EXCLUDED.restart_count,
			stderr_tail = EXCLUDED.stderr_tail,
			updated_at = now()
	`, s.Spec.Name, spec, s.Status, tools, s.LastError, s.StartedAt, s.RestartCount, s.StderrTail)
	if err != nil {
		return fmt.Errorf("save tool server state %s: %w", s.Spec.Name, err)
	}
	return nil
}

// LoadToolServerStates returns the last known snapshot for every
// supervised subprocess.
func (g *Gateway) LoadToolServerStates(ctx context.Context) ([]store.ToolServerState, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT spec, status, tools, last_error, started_at, restart_count, stderr_tail
		FROM tool_server_states
	`)
	if err != nil {
		return nil, fmt.Errorf("load tool server states: %w", err)
	}
	defer rows.Close()

	var states []store.ToolServerState
	for rows.Next() {
		var s store.ToolServerState
		var spec, tools []byte
		if err := rows.Scan(&spec, &s.Status, &tools, &s.LastError, &s.StartedAt, &s.RestartCount, &s.StderrTail); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(spec, &s.Spec); err != nil {
			return nil, err
		}
		if len(tools) > 0 {
			if err := json.Unmarshal(tools, &s.Tools); err != nil {
				return nil, err
			}
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
