//go:build !linux

package sandbox

import "log/slog"

// Restrict is a no-op on non-Linux platforms, where Landlock is
// unavailable.
func Restrict(workspace string, log *slog.Logger) error {
	log.Warn("filesystem sandboxing is only supported on linux, running tool server unconfined")
	return nil
}
