package clients

import (
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"

	"github.com/voxhall/ignition/internal/orchestrator"
)

// ServerStarter spawns the dependency server as a detached background process.
// Fire-and-forget: the spawned process is released immediately and is never
// stopped or tracked afterwards, not even when the run fails later.
type ServerStarter struct {
	Binary string
	Args   []string

	lookPath func(file string) (string, error)
	start    func(cmd *exec.Cmd) error
}

// NewServerStarter builds a ServerStarter for the given server binary and args
// (e.g. redis-server --daemonize yes).
func NewServerStarter(binary string, args []string) *ServerStarter {
	return &ServerStarter{
		Binary:   binary,
		Args:     args,
		lookPath: exec.LookPath,
		start:    func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

// Start spawns the server detached from the current session. A missing binary
// or a failed spawn returns ErrStartFailed; reachability is the caller's
// re-probe to verify.
func (s *ServerStarter) Start() error {
	path, err := s.lookPath(s.Binary)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", orchestrator.ErrStartFailed, s.Binary, err)
	}

	// No CommandContext here: the server must outlive this process.
	cmd := exec.Command(path, s.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := s.start(cmd); err != nil {
		return fmt.Errorf("%w: spawning %s: %v", orchestrator.ErrStartFailed, s.Binary, err)
	}

	if cmd.Process != nil {
		pid := cmd.Process.Pid
		if releaseErr := cmd.Process.Release(); releaseErr != nil {
			slog.Warn("releasing spawned dependency server", "binary", s.Binary, "err", releaseErr)
		}
		slog.Info("dependency server spawned", "binary", s.Binary, "pid", pid)
	}

	return nil
}
