package store

import (
	"context"
	"testing"
	"time"

	"autonomy-core/internal/apperr"
)

type fakeRelational struct {
	saveTaskCalls int
	saveTaskErrs  []error
}

func (f *fakeRelational) SaveTask(ctx context.Context, t *Task) error {
	i := f.saveTaskCalls
	f.saveTaskCalls++
	if i < len(f.saveTaskErrs) {
		return f.saveTaskErrs[i]
	}
	return nil
}
func (f *fakeRelational) LoadTasks(ctx context.Context) ([]*Task, error)     { return nil, nil }
func (f *fakeRelational) DeleteTask(ctx context.Context, id string) error   { return nil }
func (f *fakeRelational) AppendDecision(ctx context.Context, ev DecisionEvent) error {
	return nil
}
func (f *fakeRelational) AppendReinforcement(ctx context.Context, ev ReinforcementEvent) error {
	return nil
}
func (f *fakeRelational) SaveProfile(ctx context.Context, p *AutonomyProfile) error { return nil }
func (f *fakeRelational) LoadProfile(ctx context.Context, userID string) (*AutonomyProfile, error) {
	return &AutonomyProfile{UserID: userID}, nil
}
func (f *fakeRelational) ClaimProactiveSlot(ctx context.Context, slot ProactiveSlot) (bool, error) {
	return true, nil
}
func (f *fakeRelational) SaveToolServerState(ctx context.Context, s ToolServerState) error {
	return nil
}
func (f *fakeRelational) LoadToolServerStates(ctx context.Context) ([]ToolServerState, error) {
	return nil, nil
}
func (f *fakeRelational) Ping(ctx context.Context) error { return nil }

type fakeKV struct{}

func (fakeKV) AcquireLock(ctx context.Context, name string, ttl time.Duration, holder string) (bool, error) {
	return true, nil
}
func (fakeKV) HeartbeatLock(ctx context.Context, name, holder string) (bool, error) { return true, nil }
func (fakeKV) ReleaseLock(ctx context.Context, name, holder string) error           { return nil }
func (fakeKV) PublishState(ctx context.Context, key string, snapshot []byte, minInterval time.Duration) error {
	return nil
}

func TestComposite_SaveTask_RetriesTransientFailureThenSucceeds(t *testing.T) {
	rel := &fakeRelational{saveTaskErrs: []error{
		apperr.Transient("", "connection reset", nil),
	}}
	c := NewComposite(rel, fakeKV{})
	c.Retry.Base = time.Millisecond

	if err := c.SaveTask(context.Background(), &Task{ID: "t1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel.saveTaskCalls != 2 {
		t.Fatalf("SaveTask calls = %d, want 2 (one failure, one retry)", rel.saveTaskCalls)
	}
}

func TestComposite_SaveTask_DoesNotRetryDomainErrors(t *testing.T) {
	rel := &fakeRelational{saveTaskErrs: []error{
		apperr.Domain("", "stale write", "task was updated concurrently", nil),
	}}
	c := NewComposite(rel, fakeKV{})
	c.Retry.Base = time.Millisecond

	if err := c.SaveTask(context.Background(), &Task{ID: "t1"}); err == nil {
		t.Fatal("expected the domain error to surface")
	}
	if rel.saveTaskCalls != 1 {
		t.Fatalf("SaveTask calls = %d, want 1 (domain errors are not retried)", rel.saveTaskCalls)
	}
}
