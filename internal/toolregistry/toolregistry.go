// Package toolregistry implements the Tool Registry & Capability
// Router: it discovers tool schemas from live supervised servers and
// routes calls to the right one under a deadline, enforcing FIFO order
// per (server, tool) pair.
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/store"
	"autonomy-core/internal/supervisor"
)

// Supervisor is the narrow slice of internal/supervisor.Supervisor the
// registry depends on.
type Supervisor interface {
	Call(name string) (Transport, bool)
}

// Transport mirrors internal/supervisor.Transport structurally
// (duplicated rather than imported to avoid a supervisor<->toolregistry
// import cycle; Go has no way to share an interface across two
// packages that each want to define it against the other).
type Transport interface {
	ListTools(ctx context.Context) ([]store.ToolSchema, error)
	CallTool(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
	Cancel(ctx context.Context) error
}

// Registry caches the schemas advertised by every running server.
type Registry struct {
	sup Supervisor

	mu      sync.RWMutex
	schemas map[string]store.ToolSchema // key: server+"/"+tool

	fifoMu sync.Mutex
	fifo   map[string]*sync.Mutex // key: server+"/"+tool
}

// supervisorAdapter closes the gap between supervisor.Transport and
// toolregistry.Transport: both packages define an identical interface
// to avoid importing each other, so Go needs an explicit conversion
// point when wiring the two together.
type supervisorAdapter struct{ sup *supervisor.Supervisor }

func (a supervisorAdapter) Call(name string) (Transport, bool) { return a.sup.Call(name) }

// Adapt wraps a live Supervisor for use as a Registry's backing store.
func Adapt(sup *supervisor.Supervisor) Supervisor { return supervisorAdapter{sup: sup} }

// New builds a Registry backed by sup.
func New(sup Supervisor) *Registry {
	return &Registry{
		sup:     sup,
		schemas: make(map[string]store.ToolSchema),
		fifo:    make(map[string]*sync.Mutex),
	}
}

// Refresh re-runs list_tools against a running server and updates the
// cache. Called when a server enters the running state.
func (r *Registry) Refresh(ctx context.Context, server string) error {
	transport, ok := r.sup.Call(server)
	if !ok {
		return apperr.Domain("", "server not available", fmt.Sprintf("refresh: %s not running", server), nil)
	}
	tools, err := transport.ListTools(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	for _, t := range tools {
		r.schemas[key(t.ServerName, t.ToolName)] = t
	}
	r.mu.Unlock()
	return nil
}

// Schemas returns a snapshot of every cached schema, used by the admin
// API and by the Debate Dispatcher's Planner to know what tools exist.
func (r *Registry) Schemas() []store.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]store.ToolSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	return out
}

// Call implements the four numbered steps of §4.4:
//  1. Reject if server not running -> ToolUnavailable.
//  2. Validate args against cached input_schema -> InvalidArgs.
//  3. Forward with an explicit deadline; on expiry, cancel and return Timeout.
//  4. Return the result (or error) for the caller to attach to its trace.
func (r *Registry) Call(ctx context.Context, server, tool string, args map[string]any, deadline time.Time) (map[string]any, error) {
	transport, ok := r.sup.Call(server)
	if !ok {
		return nil, apperr.Domain("", "tool server unavailable", fmt.Sprintf("call %s/%s: server not running", server, tool), nil)
	}

	r.mu.RLock()
	schema, known := r.schemas[key(server, tool)]
	r.mu.RUnlock()
	if !known {
		return nil, apperr.Domain("", "unknown tool", fmt.Sprintf("call %s/%s: no cached schema", server, tool), nil)
	}
	if err := validateArgs(schema, args); err != nil {
		return nil, err
	}

	// Serialize calls on the same (server, tool) pair to give FIFO
	// ordering within a single process, per §4.4.
	lock := r.fifoLock(server, tool)
	lock.Lock()
	defer lock.Unlock()

	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	type result struct {
		out map[string]any
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		out, err := transport.CallTool(callCtx, tool, args)
		resultCh <- result{out, err}
	}()

	select {
	case res := <-resultCh:
		return res.out, res.err
	case <-callCtx.Done():
		_ = transport.Cancel(context.Background())
		return nil, apperr.Transient("", fmt.Sprintf("call %s/%s exceeded deadline", server, tool), callCtx.Err())
	}
}

func (r *Registry) fifoLock(server, tool string) *sync.Mutex {
	k := key(server, tool)
	r.fifoMu.Lock()
	defer r.fifoMu.Unlock()
	m, ok := r.fifo[k]
	if !ok {
		m = &sync.Mutex{}
		r.fifo[k] = m
	}
	return m
}

func key(server, tool string) string { return server + "/" + tool }

// validateArgs is a shallow JSON-Schema-like check: it verifies every
// property named "required" in the schema is present in args. Full
// JSON Schema validation is out of scope; the closed expression
// grammar and the Verifier stage provide the deeper safety checks.
func validateArgs(schema store.ToolSchema, args map[string]any) error {
	if len(schema.InputSchema) == 0 {
		return nil
	}
	var parsed struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema.InputSchema, &parsed); err != nil {
		return nil // unparseable schema is not itself an InvalidArgs cause
	}
	for _, field := range parsed.Required {
		if _, ok := args[field]; !ok {
			return apperr.Domain("", "missing required argument", fmt.Sprintf("call %s/%s: missing %q", schema.ServerName, schema.ToolName, field), nil)
		}
	}
	return nil
}
