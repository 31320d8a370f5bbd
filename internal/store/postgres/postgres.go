// Package postgres implements the relational half of the Persistence
// Gateway using PostgreSQL: tasks, decision log, reinforcement events,
// autonomy profiles, proactive slots, and tool server snapshots.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Gateway provides PostgreSQL-backed implementations of the relational
// store interfaces.
type Gateway struct {
	db *sql.DB
}

// New opens a connection pool to PostgreSQL. It does not run
// migrations; call Migrate explicitly, gated behind the daemon's
// "-migrate" flag.
func New(ctx context.Context, databaseURL string) (*Gateway, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Gateway{db: db}, nil
}

// DB exposes the underlying pool for migration tooling.
func (g *Gateway) DB() *sql.DB { return g.db }

// Close closes the connection pool.
func (g *Gateway) Close() error {
	if g.db != nil {
		return g.db.Close()
	}
	return nil
}

// Ping verifies connectivity.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}
