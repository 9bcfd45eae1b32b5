package orchestrator

// Status values used across RunResult and StageResult.
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusInProgress = "in-progress"
	StatusSkipped    = "skipped"
)

// Stage names, in execution order.
const (
	StageDependency  = "dependency"
	StageEnvironment = "environment"
	StageArtifact    = "artifact"
	StageLaunch      = "launch"
)

// RunResult is the aggregate outcome of one orchestrator run. Stages are
// recorded in execution order; a stage after the first failure is "skipped".
type RunResult struct {
	ID     string        `json:"id"`
	Status string        `json:"status"` // "ok", "error", "in-progress"
	Stages []StageResult `json:"stages"`
}

// StageResult is the outcome of a single stage.
type StageResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "error", "skipped"
	Error  string `json:"error,omitempty"`
}

// Stage returns the result for the named stage, if recorded.
func (r *RunResult) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// ProbeResult is returned by liveness probes and deep health checks.
type ProbeResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}
