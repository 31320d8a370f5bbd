package sandbox

import (
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// Environment variables the supervisor sets on a re-exec of itself to
// apply a filesystem sandbox before handing off to the real tool
// server command. Landlock restrictions are inherited across exec, so
// restricting here before syscall.Exec covers the tool server from its
// first instruction onward.
const (
	EnvEnable    = "AUTONOMYD_SANDBOX_EXEC"
	EnvWorkspace = "AUTONOMYD_SANDBOX_WORKSPACE"
)

// RunTrampolineIfRequested checks whether this invocation is a
// sandboxed re-exec requested by internal/supervisor: EnvEnable is set
// and the real command and its args follow in os.Args[1:]. When
// handled it never returns — it replaces the process image via execve
// or exits on failure. Callers invoke this as the first line of main,
// before flag parsing.
func RunTrampolineIfRequested(log *slog.Logger) {
	if os.Getenv(EnvEnable) != "1" {
		return
	}
	if err := Restrict(os.Getenv(EnvWorkspace), log); err != nil {
		log.Error("apply tool server sandbox failed", "err", err)
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		log.Error("sandbox trampoline invoked with no target command")
		os.Exit(1)
	}
	target, err := exec.LookPath(os.Args[1])
	if err != nil {
		log.Error("resolve sandboxed command", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
	if err := syscall.Exec(target, os.Args[1:], os.Environ()); err != nil {
		log.Error("exec sandboxed command", "command", target, "err", err)
		os.Exit(1)
	}
}
