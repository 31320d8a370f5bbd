package eventlog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"autonomy-core/internal/store"
)

type fakeSink struct {
	mu       sync.Mutex
	decisions []store.DecisionEvent
}

func (s *fakeSink) AppendDecision(ctx context.Context, ev store.DecisionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, ev)
	return nil
}

func (s *fakeSink) AppendReinforcement(ctx context.Context, ev store.ReinforcementEvent) error {
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriter_FlushesOnTicker(t *testing.T) {
	sink := &fakeSink{}
	w := New(sink, testLogger(), 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.AppendDecision(store.DecisionEvent{EventType: "test"})

	deadline := time.After(2 * time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected the event to be flushed within 2s")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWriter_DropsWhenQueueFull(t *testing.T) {
	sink := &fakeSink{}
	w := New(sink, testLogger(), 1)

	w.AppendDecision(store.DecisionEvent{EventType: "first"})
	w.AppendDecision(store.DecisionEvent{EventType: "second"}) // should be dropped, queue cap 1

	if len(w.queue) != 1 {
		t.Errorf("expected queue to stay at capacity 1, got %d", len(w.queue))
	}
}

func TestWriter_DrainsOnShutdown(t *testing.T) {
	sink := &fakeSink{}
	w := New(sink, testLogger(), 100)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	for i := 0; i < 10; i++ {
		w.AppendDecision(store.DecisionEvent{EventType: "test"})
	}
	cancel()
	w.Wait()

	if sink.count() != 10 {
		t.Errorf("expected all 10 events drained on shutdown, got %d", sink.count())
	}
}

type fakeGateway struct {
	fakeSink
}

func (g *fakeGateway) SaveTask(ctx context.Context, t *store.Task) error         { return nil }
func (g *fakeGateway) LoadTasks(ctx context.Context) ([]*store.Task, error)      { return nil, nil }
func (g *fakeGateway) DeleteTask(ctx context.Context, id string) error          { return nil }
func (g *fakeGateway) SaveProfile(ctx context.Context, p *store.AutonomyProfile) error {
	return nil
}
func (g *fakeGateway) LoadProfile(ctx context.Context, userID string) (*store.AutonomyProfile, error) {
	return &store.AutonomyProfile{UserID: userID}, nil
}
func (g *fakeGateway) ClaimProactiveSlot(ctx context.Context, slot store.ProactiveSlot) (bool, error) {
	return true, nil
}
func (g *fakeGateway) SaveToolServerState(ctx context.Context, s store.ToolServerState) error {
	return nil
}
func (g *fakeGateway) LoadToolServerStates(ctx context.Context) ([]store.ToolServerState, error) {
	return nil, nil
}
func (g *fakeGateway) AcquireLock(ctx context.Context, name string, ttl time.Duration, holder string) (bool, error) {
	return true, nil
}
func (g *fakeGateway) HeartbeatLock(ctx context.Context, name, holder string) (bool, error) {
	return true, nil
}
func (g *fakeGateway) ReleaseLock(ctx context.Context, name, holder string) error { return nil }
func (g *fakeGateway) PublishState(ctx context.Context, key string, snapshot []byte, minInterval time.Duration) error {
	return nil
}
func (g *fakeGateway) Ping(ctx context.Context) error { return nil }

var _ store.Gateway = (*fakeGateway)(nil)

func TestGateway_AppendDecisionGoesThroughWriterQueue(t *testing.T) {
	inner := &fakeGateway{}
	w := New(inner, testLogger(), 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	gw := NewGateway(inner, w)
	if err := gw.AppendDecision(context.Background(), store.DecisionEvent{EventType: "test"}); err != nil {
		t.Fatalf("AppendDecision returned an error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for inner.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected the queued decision to reach the wrapped gateway")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestGateway_OtherMethodsPassThrough(t *testing.T) {
	inner := &fakeGateway{}
	w := New(inner, testLogger(), 100)
	gw := NewGateway(inner, w)

	if err := gw.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned an error: %v", err)
	}
	if _, err := gw.LoadProfile(context.Background(), "u1"); err != nil {
		t.Fatalf("LoadProfile returned an error: %v", err)
	}
}
