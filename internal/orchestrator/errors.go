package orchestrator

import "errors"

// Dependency readiness failure modes. The dependency stage is terminal on
// either: there are no retries past the single re-probe.
var (
	// ErrClientNotInstalled means the dependency's client tool is not on
	// PATH, so liveness can never be verified. Raised before any probe or
	// spawn attempt.
	ErrClientNotInstalled = errors.New("dependency client tool not installed")

	// ErrStartFailed means the dependency server could not be spawned, or a
	// spawned server did not become reachable within the start timeout.
	ErrStartFailed = errors.New("dependency server start failed")
)
