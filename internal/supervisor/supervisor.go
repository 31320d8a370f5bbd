// Package supervisor implements the Process Supervisor: it launches,
// monitors, restarts, and terminates external tool-server subprocesses
// speaking the internal/mcp line-delimited JSON-RPC handshake: a
// long-lived supervised subprocess with an FSM, a restart budget, and
// a captured stderr tail.
package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"autonomy-core/internal/store"
)

// Supervisor owns the fleet of ToolServer processes.
type Supervisor struct {
	log              *slog.Logger
	startTimeout     time.Duration
	maxRestarts      int
	restartWindow    time.Duration
	sandboxWorkspace string
	selfExe          string

	mu        sync.RWMutex
	processes map[string]*process
}

// Config holds the boot-time tunables named in §4.3. SandboxWorkspace,
// when non-empty, causes every supervised tool server to be re-execed
// through internal/supervisor/sandbox's Landlock trampoline, confining
// its filesystem writes to that directory.
type Config struct {
	StartTimeout     time.Duration
	MaxRestarts      int
	RestartWindow    time.Duration
	SandboxWorkspace string
}

// New constructs a Supervisor. Specs are not started until Boot is
// called.
func New(log *slog.Logger, cfg Config) *Supervisor {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 60 * time.Second
	}
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = 3
	}
	if cfg.RestartWindow <= 0 {
		cfg.RestartWindow = 5 * time.Minute
	}
	var selfExe string
	if cfg.SandboxWorkspace != "" {
		if exe, err := os.Executable(); err == nil {
			selfExe = exe
		} else {
			log.Warn("resolve own executable for tool server sandbox failed, sandboxing disabled", "err", err)
		}
	}
	return &Supervisor{
		log:              log,
		startTimeout:     cfg.StartTimeout,
		maxRestarts:      cfg.MaxRestarts,
		restartWindow:    cfg.RestartWindow,
		sandboxWorkspace: cfg.SandboxWorkspace,
		selfExe:          selfExe,
		processes:        make(map[string]*process),
	}
}

// Boot starts every spec in parallel, matching §4.3's "boot is parallel
// across servers; a single failure must not block others." Each
// process's FSM (process.run) keeps running detached for the lifetime
// of the supervisor, restarting on unexpected exit; Boot itself only
// waits for each process's first attempt to settle into running or
// failed, so it returns promptly even when every tool server is
// healthy and long-lived.
func (s *Supervisor) Boot(ctx context.Context, specs []store.ToolServerSpec) {
	procs := make([]*process, 0, len(specs))
	for _, spec := range specs {
		p := newProcess(spec, s.log, s.startTimeout, s.maxRestarts, s.restartWindow)
		if s.sandboxWorkspace != "" && s.selfExe != "" {
			p.sandboxWorkspace = s.sandboxWorkspace
			p.sandboxTrampoline = s.selfExe
		}

		s.mu.Lock()
		s.processes[spec.Name] = p
		s.mu.Unlock()

		procs = append(procs, p)
		go p.run(ctx)
	}
	for _, p := range procs {
		<-p.ready
	}
}

// Shutdown stops every managed process, sending SIGTERM then SIGKILL
// after 5s per process (§5's cancellation column).
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.RLock()
	procs := make([]*process, 0, len(s.processes))
	for _, p := range s.processes {
		procs = append(procs, p)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func(p *process) {
			defer wg.Done()
			p.stop(ctx)
		}(p)
	}
	wg.Wait()
}

// State returns the current observable state of one server.
func (s *Supervisor) State(name string) (store.ToolServerState, bool) {
	s.mu.RLock()
	p, ok := s.processes[name]
	s.mu.RUnlock()
	if !ok {
		return store.ToolServerState{}, false
	}
	return p.snapshot(), true
}

// States returns the observable state of every managed server, used by
// the Tool Registry to know which servers are running and by the admin
// API's mcp status endpoint.
func (s *Supervisor) States() []store.ToolServerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.ToolServerState, 0, len(s.processes))
	for _, p := range s.processes {
		out = append(out, p.snapshot())
	}
	return out
}

// Call forwards a request to a running server's stdio transport. It is
// a thin pass-through used by internal/toolregistry so the Router does
// not need direct access to process internals.
func (s *Supervisor) Call(name string) (Transport, bool) {
	s.mu.RLock()
	p, ok := s.processes[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return p.transport()
}

// Transport is the narrow subset of internal/mcp.Client the Tool
// Registry needs; kept here to avoid an import cycle between
// supervisor and toolregistry.
type Transport interface {
	ListTools(ctx context.Context) ([]store.ToolSchema, error)
	CallTool(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
	Cancel(ctx context.Context) error
}
