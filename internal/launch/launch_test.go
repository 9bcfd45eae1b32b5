package launch

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/voxhall/ignition/internal/environment"
)

// fakeExec records the exec call instead of replacing the process image.
type fakeExec struct {
	argv0 string
	argv  []string
	envv  []string
	err   error
}

func (f *fakeExec) exec(argv0 string, argv []string, envv []string) error {
	f.argv0 = argv0
	f.argv = argv
	f.envv = envv
	return f.err
}

func newTestLauncher(spec Spec, fe *fakeExec) *Launcher {
	return &Launcher{
		spec:     spec,
		execFn:   fe.exec,
		lookPath: func(file string) (string, error) { return "/usr/local/bin/" + file, nil },
		environ:  func() []string { return []string{"HOME=/home/svc", "USE_GPU=false"} },
		chdir:    func(string) error { return nil },
	}
}

func TestLaunchBuildsArgvAndEnv(t *testing.T) {
	t.Parallel()

	fe := &fakeExec{}
	l := newTestLauncher(Spec{
		Executable: "uv",
		Args:       []string{"run", "--no-sync", "uvicorn", "api.src.main:app"},
	}, fe)

	env := environment.Assemble("/proj", environment.Flags{GPUEnabled: true})
	require.NoError(t, l.Launch(context.Background(), env))

	assert.Equal(t, "/usr/local/bin/uv", fe.argv0)
	assert.Equal(t, []string{
		"/usr/local/bin/uv", "run", "--no-sync", "uvicorn", "api.src.main:app",
	}, fe.argv)

	// Assembled vars are appended after the inherited environment so they
	// win for duplicated names.
	require.Greater(t, len(fe.envv), 2)
	assert.Equal(t, "HOME=/home/svc", fe.envv[0])
	assert.Contains(t, fe.envv, "USE_GPU=true")
	inherited := -1
	assembled := -1
	for i, kv := range fe.envv {
		switch kv {
		case "USE_GPU=false":
			inherited = i
		case "USE_GPU=true":
			assembled = i
		}
	}
	assert.Less(t, inherited, assembled, "assembled USE_GPU must come after inherited one")
}

func TestLaunchEntersWorkDir(t *testing.T) {
	t.Parallel()

	var entered string
	fe := &fakeExec{}
	l := newTestLauncher(Spec{Executable: "uv", Dir: "/srv/app"}, fe)
	l.chdir = func(dir string) error {
		entered = dir
		return nil
	}

	require.NoError(t, l.Launch(context.Background(), environment.Config{}))
	assert.Equal(t, "/srv/app", entered)
}

func TestLaunchErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		lookPathErr error
		execErr     error
		wantErr     error
	}{
		{
			name:        "executable not on PATH",
			lookPathErr: exec.ErrNotFound,
			wantErr:     ErrExecutableNotFound,
		},
		{
			name:    "exec reports ENOENT",
			execErr: unix.ENOENT,
			wantErr: ErrExecutableNotFound,
		},
		{
			name:    "exec reports EACCES",
			execErr: unix.EACCES,
			wantErr: ErrUnauthorized,
		},
		{
			name:    "exec reports EPERM",
			execErr: unix.EPERM,
			wantErr: ErrUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fe := &fakeExec{err: tc.execErr}
			l := newTestLauncher(Spec{Executable: "uvicorn"}, fe)
			if tc.lookPathErr != nil {
				l.lookPath = func(string) (string, error) { return "", tc.lookPathErr }
			}

			err := l.Launch(context.Background(), environment.Config{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestVerifyChecksResolutionOnly(t *testing.T) {
	t.Parallel()

	fe := &fakeExec{}
	l := newTestLauncher(Spec{Executable: "uv"}, fe)

	require.NoError(t, l.Verify(context.Background()))
	assert.Empty(t, fe.argv0, "verify must not exec")

	l.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	err := l.Verify(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecutableNotFound))
	assert.Equal(t, "executable", l.Name())
}
