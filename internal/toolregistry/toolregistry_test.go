package toolregistry

import (
	"context"
	"testing"
	"time"

	"autonomy-core/internal/store"
)

type fakeTransport struct {
	tools   []store.ToolSchema
	callFn  func(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
	cancels int
}

func (f *fakeTransport) ListTools(ctx context.Context) ([]store.ToolSchema, error) { return f.tools, nil }
func (f *fakeTransport) CallTool(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	return f.callFn(ctx, tool, args)
}
func (f *fakeTransport) Cancel(ctx context.Context) error { f.cancels++; return nil }

type fakeSupervisor struct {
	running map[string]*fakeTransport
}

func (f *fakeSupervisor) Call(name string) (Transport, bool) {
	t, ok := f.running[name]
	return t, ok
}

func TestCall_ServerNotRunning(t *testing.T) {
	sup := &fakeSupervisor{running: map[string]*fakeTransport{}}
	r := New(sup)
	_, err := r.Call(context.Background(), "ghost", "echo", nil, time.Now().Add(time.Second))
	if err == nil {
		t.Fatal("expected ToolUnavailable-style error")
	}
}

func TestCall_UnknownToolWithoutRefresh(t *testing.T) {
	transport := &fakeTransport{}
	sup := &fakeSupervisor{running: map[string]*fakeTransport{"srv": transport}}
	r := New(sup)
	_, err := r.Call(context.Background(), "srv", "echo", nil, time.Now().Add(time.Second))
	if err == nil {
		t.Fatal("expected unknown-tool error before Refresh has cached a schema")
	}
}

func TestCall_InvalidArgs(t *testing.T) {
	transport := &fakeTransport{tools: []store.ToolSchema{
		{ServerName: "srv", ToolName: "echo", InputSchema: []byte(`{"required":["text"]}`)},
	}}
	sup := &fakeSupervisor{running: map[string]*fakeTransport{"srv": transport}}
	r := New(sup)
	if err := r.Refresh(context.Background(), "srv"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, err := r.Call(context.Background(), "srv", "echo", map[string]any{}, time.Now().Add(time.Second))
	if err == nil {
		t.Fatal("expected InvalidArgs-style error for missing required field")
	}
}

func TestCall_Success(t *testing.T) {
	transport := &fakeTransport{
		tools: []store.ToolSchema{{ServerName: "srv", ToolName: "echo"}},
		callFn: func(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
			return map[string]any{"echoed": args["text"]}, nil
		},
	}
	sup := &fakeSupervisor{running: map[string]*fakeTransport{"srv": transport}}
	r := New(sup)
	if err := r.Refresh(context.Background(), "srv"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	out, err := r.Call(context.Background(), "srv", "echo", map[string]any{"text": "hi"}, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if out["echoed"] != "hi" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestCall_TimeoutCancelsUpstream(t *testing.T) {
	transport := &fakeTransport{
		tools: []store.ToolSchema{{ServerName: "srv", ToolName: "slow"}},
		callFn: func(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	sup := &fakeSupervisor{running: map[string]*fakeTransport{"srv": transport}}
	r := New(sup)
	if err := r.Refresh(context.Background(), "srv"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, err := r.Call(context.Background(), "srv", "slow", nil, time.Now().Add(20*time.Millisecond))
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if transport.cancels == 0 {
		t.Error("expected Cancel to be invoked on deadline expiry")
	}
}

func TestCall_SameServerToolIsSerialized(t *testing.T) {
	var order []int
	transport := &fakeTransport{
		tools: []store.ToolSchema{{ServerName: "srv", ToolName: "count"}},
		callFn: func(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
			n := args["n"].(int)
			time.Sleep(5 * time.Millisecond)
			order = append(order, n)
			return nil, nil
		},
	}
	sup := &fakeSupervisor{running: map[string]*fakeTransport{"srv": transport}}
	r := New(sup)
	if err := r.Refresh(context.Background(), "srv"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	done := make(chan struct{}, 2)
	go func() {
		r.Call(context.Background(), "srv", "count", map[string]any{"n": 1}, time.Now().Add(time.Second))
		done <- struct{}{}
	}()
	time.Sleep(1 * time.Millisecond)
	go func() {
		r.Call(context.Background(), "srv", "count", map[string]any{"n": 2}, time.Now().Add(time.Second))
		done <- struct{}{}
	}()
	<-done
	<-done

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected FIFO order [1 2], got %v", order)
	}
}
