package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/voxhall/ignition/internal/orchestrator"

	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run the full bootstrap pipeline and exec the server",
	Long: `Up runs all four bootstrap stages in order: dependency readiness,
environment assembly, artifact preparation, and process launch.

On success this process is replaced by the server and never returns. On
failure the run result is printed as JSON and the exit code is non-zero
(1 for a dependency readiness failure).`,
	RunE: runUp,
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if app.otelProvider != nil {
		defer shutdownTelemetry()
	}

	result, err := app.orchestrator.Run(ctx)
	// Run only returns when a stage failed; a successful launch replaces
	// this process image before Run can return.
	if result != nil {
		printRunResult(result)
	}
	if err != nil {
		if errors.Is(err, orchestrator.ErrClientNotInstalled) || errors.Is(err, orchestrator.ErrStartFailed) {
			// Dependency readiness failures exit 1 directly; other stages
			// report through cobra.
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			shutdownTelemetry()
			os.Exit(1)
		}
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	// Launch handed back without an error and without replacing the image.
	// That only happens with a stubbed exec; treat it as success.
	return nil
}

func shutdownTelemetry() {
	if app.otelProvider == nil {
		return
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.otelProvider.Shutdown(shutCtx); err != nil {
		slog.Warn("OTEL shutdown error", "err", err)
	}
}

func printRunResult(result *orchestrator.RunResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stdout, `{"status":%q}`+"\n", result.Status)
	}
}
