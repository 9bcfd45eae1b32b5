// Package launch performs the final handoff: replacing the current process
// image with the long-running server process. There is no supervision and no
// restart; once exec succeeds, this program is gone.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/voxhall/ignition/internal/environment"
)

// Launch failure modes. These can only be observed when the handoff fails
// before the image is replaced.
var (
	ErrExecutableNotFound = errors.New("launch executable not found")
	ErrUnauthorized       = errors.New("launch executable not permitted")
)

// Spec describes the process to exec: executable name (resolved via PATH),
// arguments, and an optional working directory entered before the handoff.
// A Spec is consumed exactly once.
type Spec struct {
	Executable string
	Args       []string
	Dir        string
}

// Launcher resolves and execs a Spec. The exec, lookPath, environ, and chdir
// fields are swapped out in tests; real runs replace the process image.
type Launcher struct {
	spec Spec

	execFn   func(argv0 string, argv []string, envv []string) error
	lookPath func(file string) (string, error)
	environ  func() []string
	chdir    func(dir string) error
}

// New builds a Launcher for spec.
func New(spec Spec) *Launcher {
	return &Launcher{
		spec:     spec,
		execFn:   unix.Exec,
		lookPath: exec.LookPath,
		environ:  os.Environ,
		chdir:    os.Chdir,
	}
}

// Launch resolves the executable and replaces the current process image with
// it. The assembled environment is appended to the inherited process
// environment, so assembled values win for duplicated names.
//
// On success Launch never returns. Any return is a failure before handoff.
func (l *Launcher) Launch(_ context.Context, env environment.Config) error {
	path, err := l.lookPath(l.spec.Executable)
	if err != nil {
		return classify(l.spec.Executable, err)
	}

	if l.spec.Dir != "" {
		if err := l.chdir(l.spec.Dir); err != nil {
			return fmt.Errorf("entering launch dir %s: %w", l.spec.Dir, err)
		}
	}

	argv := append([]string{path}, l.spec.Args...)
	envv := append(l.environ(), env.Environ()...)

	if err := l.execFn(path, argv, envv); err != nil {
		return classify(l.spec.Executable, err)
	}

	// Unreachable with a real exec; test fakes land here.
	return nil
}

// Name implements orchestrator.Verifier.
func (l *Launcher) Name() string { return "executable" }

// Verify reports whether the launch executable is resolvable. Used by deep
// health; it does not exec anything.
func (l *Launcher) Verify(_ context.Context) error {
	if _, err := l.lookPath(l.spec.Executable); err != nil {
		return classify(l.spec.Executable, err)
	}
	return nil
}

// classify maps resolution and exec errors onto the closed launch error set.
func classify(executable string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, unix.ENOENT):
		return fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, executable, err)
	case errors.Is(err, fs.ErrPermission),
		errors.Is(err, unix.EACCES),
		errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s: %v", ErrUnauthorized, executable, err)
	default:
		return fmt.Errorf("launching %s: %w", executable, err)
	}
}
