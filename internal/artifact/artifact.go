// Package artifact ensures the model artifact required by the launched server
// is installed and downloaded before launch. Both steps are opaque external
// commands; this package owns nothing but their invocation and exit codes.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/voxhall/ignition/internal/config"
	"github.com/voxhall/ignition/internal/orchestrator"
)

// Artifact preparation failure modes. Both wrap the subprocess exit code in
// their message.
var (
	ErrInstallFailed  = errors.New("artifact install failed")
	ErrDownloadFailed = errors.New("artifact download failed")
)

// runFunc executes one external command and returns its exit code. A negative
// code means the command never ran (e.g. binary not found).
type runFunc func(ctx context.Context, dir string, cmd config.CommandConfig) (int, error)

// Preparer runs the installer and downloader steps in order. It is not
// idempotence-checked: every call re-attempts both steps and relies on the
// external tools' own caching.
type Preparer struct {
	installer  config.CommandConfig
	downloader config.CommandConfig
	workDir    string
	modelDir   string

	run runFunc
}

// NewPreparer builds a Preparer from the artifact config. modelDir, when
// non-empty, is only used for logging and health checks; it never gates
// re-preparation.
func NewPreparer(cfg config.ArtifactConfig, modelDir string) *Preparer {
	return &Preparer{
		installer:  cfg.Installer,
		downloader: cfg.Downloader,
		workDir:    cfg.WorkDir,
		modelDir:   modelDir,
		run:        realRun,
	}
}

// Prepare runs the installer, then the downloader. The first failure aborts
// with the matching sentinel error wrapping the subprocess exit code.
func (p *Preparer) Prepare(ctx context.Context) error {
	if code, err := p.run(ctx, p.workDir, p.installer); err != nil {
		return fmt.Errorf("%w: %s exited with code %d: %v", ErrInstallFailed, p.installer.Path, code, err)
	}
	slog.InfoContext(ctx, "artifact install step complete", "command", p.installer.Path)

	if code, err := p.run(ctx, p.workDir, p.downloader); err != nil {
		return fmt.Errorf("%w: %s exited with code %d: %v", ErrDownloadFailed, p.downloader.Path, code, err)
	}
	slog.InfoContext(ctx, "artifact download step complete", "command", p.downloader.Path)

	if p.modelDir != "" {
		if info, err := os.Stat(p.modelDir); err == nil && info.IsDir() {
			slog.InfoContext(ctx, "model artifact present", "dir", p.modelDir)
		} else {
			// Downloader layouts vary; absence here is informational only.
			slog.WarnContext(ctx, "model directory not found after download", "dir", p.modelDir)
		}
	}

	return nil
}

// Name implements orchestrator.Verifier.
func (p *Preparer) Name() string { return "artifact" }

// Verify reports whether the model directory exists. Used by deep health; a
// missing directory means prepare has not run (or the downloader failed).
func (p *Preparer) Verify(_ context.Context) error {
	if p.modelDir == "" {
		return nil
	}
	info, err := os.Stat(p.modelDir)
	if err != nil {
		return fmt.Errorf("model dir %s: %w", p.modelDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("model dir %s: not a directory", p.modelDir)
	}
	return nil
}

var _ orchestrator.Verifier = (*Preparer)(nil)

// DefaultInstallerArgs returns the installer arguments for the package extras
// implied by the feature flags, used when bootstrap.artifact.installer.args is
// not set explicitly.
func DefaultInstallerArgs(gpuEnabled, onnxEnabled bool) []string {
	extras := "cpu"
	switch {
	case gpuEnabled:
		extras = "gpu"
	case onnxEnabled:
		extras = "onnx"
	}
	return []string{"pip", "install", "-e", ".[" + extras + "]"}
}

// realRun executes the command with combined output captured for diagnostics.
// The exit code is extracted from exec.ExitError; -1 means the process never
// started.
func realRun(ctx context.Context, dir string, c config.CommandConfig) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err == nil {
		return 0, nil
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}

	slog.ErrorContext(ctx, "artifact command failed",
		"command", c.Path,
		"args", c.Args,
		"exit_code", code,
		"output", string(output),
	)

	return code, fmt.Errorf("running %s: %w", filepath.Base(c.Path), err)
}
