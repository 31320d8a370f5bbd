package debate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/llm"
	"autonomy-core/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLLM struct {
	responses []string
	i         int
	err       error
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, llm.TokenUsage, error) {
	if f.err != nil {
		return "", llm.TokenUsage{}, f.err
	}
	if f.i >= len(f.responses) {
		return f.responses[len(f.responses)-1], llm.TokenUsage{}, nil
	}
	r := f.responses[f.i]
	f.i++
	return r, llm.TokenUsage{}, nil
}

func (f *fakeLLM) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

type fakeRegistry struct {
	mu    sync.Mutex
	calls int
	fn    func(server, tool string, args map[string]any) (map[string]any, error)
}

func (f *fakeRegistry) Call(ctx context.Context, server, tool string, args map[string]any, deadline time.Time) (map[string]any, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(server, tool, args)
	}
	return map[string]any{"ok": true}, nil
}

type fakeGateway struct {
	mu             sync.Mutex
	decisions      []store.DecisionEvent
	reinforcements []store.ReinforcementEvent
	profiles       map[string]*store.AutonomyProfile
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{profiles: map[string]*store.AutonomyProfile{}}
}

func (g *fakeGateway) AppendDecision(ctx context.Context, ev store.DecisionEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decisions = append(g.decisions, ev)
	return nil
}

func (g *fakeGateway) AppendReinforcement(ctx context.Context, ev store.ReinforcementEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reinforcements = append(g.reinforcements, ev)
	return nil
}

func (g *fakeGateway) LoadProfile(ctx context.Context, userID string) (*store.AutonomyProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.profiles[userID]; ok {
		return p, nil
	}
	return &store.AutonomyProfile{UserID: userID, EngagementScore: 0.5, InitiativeLevel: 0.5}, nil
}

func (g *fakeGateway) SaveProfile(ctx context.Context, p *store.AutonomyProfile) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[p.UserID] = p
	return nil
}

func TestHandle_HappyPathToolStep(t *testing.T) {
	l := &fakeLLM{responses: []string{
		`[{"tool":"echo","server":"utils","args":{"msg":"hi"}},{"reply":"done that","done":true}]`,
		`[{"tool":"echo","server":"utils","args":{"msg":"hi"}},{"reply":"done that","done":true}]`,
	}}
	reg := &fakeRegistry{}
	gw := newFakeGateway()
	d := New(l, reg, gw, testLogger(), Config{})

	reply, tr, err := d.Handle(context.Background(), "u1", "say hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "done that" {
		t.Fatalf("reply = %q", reply)
	}
	if tr.VerifierResult != string(resultApprove) {
		t.Fatalf("verifier result = %q", tr.VerifierResult)
	}
	if reg.calls != 1 {
		t.Fatalf("registry calls = %d, want 1", reg.calls)
	}
	gw.mu.Lock()
	if len(gw.reinforcements) != 1 {
		t.Fatalf("reinforcements = %d, want 1", len(gw.reinforcements))
	}
	if !gw.reinforcements[0].Flags.TaskSucceeded {
		t.Fatalf("expected task_succeeded flag")
	}
	gw.mu.Unlock()
}

func TestHandle_DenylistViolationRevisedThenApproved(t *testing.T) {
	// The offending step ("rm -rf /") gets dropped by the verifier's own
	// mechanical revision; the remaining reply step is then approved.
	l := &fakeLLM{responses: []string{
		`[{"tool":"shell","server":"utils","args":{"cmd":"rm -rf /"}},{"reply":"cleaned","done":true}]`,
	}}
	reg := &fakeRegistry{}
	gw := newFakeGateway()
	d := New(l, reg, gw, testLogger(), Config{})

	reply, tr, err := d.Handle(context.Background(), "u1", "clean up", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.VerifierResult != string(resultApprove) {
		t.Fatalf("verifier result = %q, want approve after revision", tr.VerifierResult)
	}
	if reply != "cleaned" {
		t.Fatalf("reply = %q", reply)
	}
	if reg.calls != 0 {
		t.Fatalf("registry calls = %d, want 0 (dangerous step dropped)", reg.calls)
	}
}

func TestHandle_TwoConsecutiveNonApprovalsReject(t *testing.T) {
	// Two dangerous steps: the first revise pass drops the first one, the
	// second verify pass still trips on the second one, and the second
	// consecutive non-approval forces a reject even though the plan
	// would have converged on a third pass.
	l := &fakeLLM{responses: []string{
		`[{"tool":"shell","server":"utils","args":{"cmd":"eval danger"}},{"tool":"shell","server":"utils","args":{"cmd":"rm -rf /"}},{"reply":"ok","done":true}]`,
	}}
	reg := &fakeRegistry{}
	gw := newFakeGateway()
	d := New(l, reg, gw, testLogger(), Config{})

	reply, tr, err := d.Handle(context.Background(), "u1", "do danger", nil)
	if err == nil {
		t.Fatalf("expected rejection error")
	}
	if tr.VerifierResult != string(resultReject) {
		t.Fatalf("verifier result = %q, want reject", tr.VerifierResult)
	}
	if reply == "" {
		t.Fatalf("expected an apology reply")
	}
	if reg.calls != 0 {
		t.Fatalf("registry calls = %d, want 0 (plan never approved)", reg.calls)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindSafety {
		t.Fatalf("expected a safety error, got %v", err)
	}
}

func TestHandle_ToolCallFailureSurfaced(t *testing.T) {
	l := &fakeLLM{responses: []string{
		`[{"tool":"broken","server":"utils","args":{}}]`,
	}}
	reg := &fakeRegistry{fn: func(server, tool string, args map[string]any) (map[string]any, error) {
		return nil, apperr.Domain("", "that failed", "tool returned an error", nil)
	}}
	gw := newFakeGateway()
	d := New(l, reg, gw, testLogger(), Config{})

	_, _, err := d.Handle(context.Background(), "u1", "run broken tool", nil)
	if err == nil {
		t.Fatalf("expected execution error to propagate")
	}
	gw.mu.Lock()
	if len(gw.reinforcements) != 1 || gw.reinforcements[0].Flags.TaskSucceeded {
		t.Fatalf("expected a reinforcement event marking task as unsuccessful")
	}
	gw.mu.Unlock()
}

func TestExecute_TransientToolFailureRetriedOnce(t *testing.T) {
	attempts := 0
	reg := &fakeRegistry{fn: func(server, tool string, args map[string]any) (map[string]any, error) {
		attempts++
		if attempts == 1 {
			return nil, apperr.Transient("", "timed out", errors.New("dial timeout"))
		}
		return map[string]any{"ok": true}, nil
	}}
	gw := newFakeGateway()
	d := New(nil, reg, gw, testLogger(), Config{})

	plan := []store.PlanStep{{Tool: "flaky", Server: "utils", Args: map[string]any{}, Done: true}}
	final, reply, err := d.execute(context.Background(), "u1", "req-1", plan)
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (one retry)", attempts)
	}
	if len(final) != 1 {
		t.Fatalf("final actions = %d, want 1", len(final))
	}
	if reply != "Done." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestExecute_StepRateLimitThrottlesSecondToolCall(t *testing.T) {
	reg := &fakeRegistry{}
	gw := newFakeGateway()
	d := New(nil, reg, gw, testLogger(), Config{StepsPerMinute: 1})

	plan := []store.PlanStep{
		{Tool: "one", Server: "utils", Args: map[string]any{}},
		{Tool: "two", Server: "utils", Args: map[string]any{}, Done: true},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := d.execute(ctx, "u1", "req-1", plan)
	if err == nil {
		t.Fatal("expected the second tool step to block on the exhausted per-user rate limit and hit the context deadline")
	}
	if reg.calls != 1 {
		t.Fatalf("registry calls = %d, want 1 (second step throttled before it could run)", reg.calls)
	}
}

func TestExecute_StepRateLimitIsPerUser(t *testing.T) {
	reg := &fakeRegistry{}
	gw := newFakeGateway()
	d := New(nil, reg, gw, testLogger(), Config{StepsPerMinute: 1})

	plan := []store.PlanStep{{Tool: "one", Server: "utils", Args: map[string]any{}, Done: true}}

	if _, _, err := d.execute(context.Background(), "u1", "req-1", plan); err != nil {
		t.Fatalf("u1's first step should not be throttled: %v", err)
	}
	if _, _, err := d.execute(context.Background(), "u2", "req-2", plan); err != nil {
		t.Fatalf("u2's first step should not share u1's rate limiter: %v", err)
	}
}

func TestReinforce_ClampsProfileMovement(t *testing.T) {
	gw := newFakeGateway()
	gw.profiles["u1"] = &store.AutonomyProfile{UserID: "u1", EngagementScore: 0.95, InitiativeLevel: 0.5}
	d := New(nil, &fakeRegistry{}, gw, testLogger(), Config{ReinforcementClamp: 0.05})

	d.reinforce(context.Background(), "u1", Outcome{Succeeded: true, Concise: true, Helpful: true, EmotionallyAligned: true})

	gw.mu.Lock()
	defer gw.mu.Unlock()
	p := gw.profiles["u1"]
	if p.EngagementScore > 1.0 {
		t.Fatalf("engagement score %v exceeds clamp ceiling", p.EngagementScore)
	}
	if p.EngagementScore <= 0.95 {
		t.Fatalf("engagement score %v did not move up on positive outcome", p.EngagementScore)
	}
}

func TestPlan_NoLLMConfiguredReturnsCannedReply(t *testing.T) {
	d := New(nil, &fakeRegistry{}, newFakeGateway(), testLogger(), Config{})
	steps, err := d.plan(context.Background(), "do something", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || !steps[0].Done || steps[0].Reply == "" {
		t.Fatalf("expected a single canned reply step, got %+v", steps)
	}
}
