package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/ignition/internal/config"
)

func newTestPreparer(run runFunc) *Preparer {
	return &Preparer{
		installer:  config.CommandConfig{Path: "uv", Args: []string{"pip", "install", "-e", ".[gpu]"}},
		downloader: config.CommandConfig{Path: "python", Args: []string{"download_model.py"}},
		run:        run,
	}
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	t.Run("runs install then download", func(t *testing.T) {
		t.Parallel()

		var calls []string
		p := newTestPreparer(func(_ context.Context, _ string, c config.CommandConfig) (int, error) {
			calls = append(calls, c.Path)
			return 0, nil
		})

		require.NoError(t, p.Prepare(context.Background()))
		assert.Equal(t, []string{"uv", "python"}, calls)
	})

	t.Run("install failure carries exit code", func(t *testing.T) {
		t.Parallel()

		p := newTestPreparer(func(_ context.Context, _ string, c config.CommandConfig) (int, error) {
			if c.Path == "uv" {
				return 2, errors.New("resolution impossible")
			}
			t.Fatal("downloader must not run after install failure")
			return 0, nil
		})

		err := p.Prepare(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInstallFailed))
		assert.False(t, errors.Is(err, ErrDownloadFailed))
		assert.Contains(t, err.Error(), "exited with code 2")
	})

	t.Run("download failure carries exit code", func(t *testing.T) {
		t.Parallel()

		p := newTestPreparer(func(_ context.Context, _ string, c config.CommandConfig) (int, error) {
			if c.Path == "python" {
				return 1, errors.New("download interrupted")
			}
			return 0, nil
		})

		err := p.Prepare(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDownloadFailed))
		assert.Contains(t, err.Error(), "exited with code 1")
	})

	t.Run("always re-attempts on repeat calls", func(t *testing.T) {
		t.Parallel()

		runs := 0
		p := newTestPreparer(func(context.Context, string, config.CommandConfig) (int, error) {
			runs++
			return 0, nil
		})

		require.NoError(t, p.Prepare(context.Background()))
		require.NoError(t, p.Prepare(context.Background()))
		assert.Equal(t, 4, runs, "two steps per call, no caching")
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	t.Run("model dir present", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := &Preparer{modelDir: dir}
		assert.NoError(t, p.Verify(context.Background()))
	})

	t.Run("model dir absent", func(t *testing.T) {
		t.Parallel()

		p := &Preparer{modelDir: filepath.Join(t.TempDir(), "missing")}
		assert.Error(t, p.Verify(context.Background()))
	})

	t.Run("model dir is a file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "model.bin")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

		p := &Preparer{modelDir: path}
		err := p.Verify(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("unconfigured model dir is fine", func(t *testing.T) {
		t.Parallel()

		p := &Preparer{}
		assert.NoError(t, p.Verify(context.Background()))
	})
}

func TestDefaultInstallerArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gpu  bool
		onnx bool
		want string
	}{
		{name: "cpu by default", want: ".[cpu]"},
		{name: "gpu extras", gpu: true, want: ".[gpu]"},
		{name: "onnx extras", onnx: true, want: ".[onnx]"},
		{name: "gpu wins over onnx", gpu: true, onnx: true, want: ".[gpu]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			args := DefaultInstallerArgs(tc.gpu, tc.onnx)
			require.Len(t, args, 4)
			assert.Equal(t, []string{"pip", "install", "-e", tc.want}, args)
		})
	}
}

func TestRealRunExitCode(t *testing.T) {
	t.Parallel()

	// `false` exits 1 without output; exercises exit code extraction.
	code, err := realRun(context.Background(), "", config.CommandConfig{Path: "false"})
	require.Error(t, err)
	assert.Equal(t, 1, code)

	code, err = realRun(context.Background(), "", config.CommandConfig{Path: "true"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}
