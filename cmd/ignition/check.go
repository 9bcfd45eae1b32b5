package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the dependency readiness check and exit",
	Long: `Check verifies the cache/broker dependency is reachable, spawning its
server and re-probing once if it is not. The result is printed as JSON.
Exits 0 when the dependency is ready and 1 otherwise.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer shutdownTelemetry()

	err := app.orchestrator.EnsureDependency(context.Background())

	result := map[string]string{"status": "ok"}
	if err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		fmt.Fprintf(os.Stdout, `{"status":%q}`+"\n", result["status"])
	}

	if err != nil {
		return fmt.Errorf("dependency not ready: %w", err)
	}
	return nil
}
