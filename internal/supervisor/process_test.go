package supervisor

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"autonomy-core/internal/store"
)

// fakeToolServerScript is a tiny shell script speaking just enough of
// the line-delimited JSON-RPC protocol to satisfy Handshake: it always
// answers "initialize" and "list_tools" with a canned response, then
// blocks reading further lines forever (kept alive until killed).
const fakeToolServerScript = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    *initialize*) echo '{"id":1,"result":{}}' ;;
    *list_tools*) echo '{"id":2,"result":{"tools":[{"name":"ping","description":"pings","input_schema":{}}]}}' ;;
    *) echo '{"id":0,"result":{}}' ;;
  esac
done
`

func writeFakeServer(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool server script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-server.sh")
	if err := os.WriteFile(path, []byte(fakeToolServerScript), fs.FileMode(0o755)); err != nil {
		t.Fatalf("write fake server script: %v", err)
	}
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestProcess_BootReachesRunning(t *testing.T) {
	script := writeFakeServer(t)
	spec := store.ToolServerSpec{Name: "fake", Command: "sh", Args: []string{script}}

	p := newProcess(spec, testLogger(), 2*time.Second, 3, 5*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { p.run(ctx); close(done) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := p.snapshot(); snap.Status == store.ToolServerRunning {
			if len(snap.Tools) != 1 || snap.Tools[0].ToolName != "ping" {
				t.Fatalf("unexpected tools: %+v", snap.Tools)
			}
			cancel()
			<-done
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("process never reached running, last status: %v", p.snapshot().Status)
}

func TestProcess_UnresolvedEnvFailsWithoutCrashingBoot(t *testing.T) {
	spec := store.ToolServerSpec{
		Name:    "broken",
		Command: "sh",
		Args:    []string{"-c", "true"},
		Env:     map[string]string{"MISSING": "${DEFINITELY_NOT_SET_XYZ}"},
	}
	p := newProcess(spec, testLogger(), time.Second, 0, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p.run(ctx)

	snap := p.snapshot()
	if snap.Status != store.ToolServerFailed && snap.Status != store.ToolServerStopped {
		t.Fatalf("expected failed or stopped status, got %v", snap.Status)
	}
}

func TestResolveEnv_UnresolvedPlaceholder(t *testing.T) {
	_, err := resolveEnv(map[string]string{"X": "${DEFINITELY_NOT_SET_XYZ}"})
	if err == nil {
		t.Fatal("expected an error for an unresolved placeholder")
	}
}

func TestResolveEnv_ResolvesFromHostEnv(t *testing.T) {
	t.Setenv("SUPERVISOR_TEST_VAR", "value123")
	env, err := resolveEnv(map[string]string{"X": "${SUPERVISOR_TEST_VAR}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env) != 1 || env[0] != "X=value123" {
		t.Fatalf("unexpected env: %v", env)
	}
}

func TestRingBuffer_CapsAtMaxSize(t *testing.T) {
	rb := newRingBuffer(8)
	rb.Write([]byte("0123456789"))
	if got := rb.String(); len(got) != 8 || got != "23456789" {
		t.Errorf("expected trimmed tail '23456789', got %q", got)
	}
}
