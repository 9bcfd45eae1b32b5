// Package orchestrator runs the bootstrap pipeline: dependency readiness,
// environment assembly, artifact preparation, and process launch, strictly in
// that order. A stage starts only after the previous stage's result is known,
// and the first failure is terminal for the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/voxhall/ignition/internal/environment"
)

// ErrRunInProgress is returned when Run or Prepare is called while another
// run is active.
var ErrRunInProgress = errors.New("bootstrap run already in progress")

const tracerName = "ignition"

// ToolChecker is satisfied by *clients.Toolchain.
type ToolChecker interface {
	Check() error
}

// Prober is satisfied by *clients.RedisClient and *clients.NATSClient.
type Prober interface {
	Probe(ctx context.Context) ProbeResult
}

// Starter is satisfied by *clients.ServerStarter.
type Starter interface {
	Start() error
}

// Preparer is satisfied by *artifact.Preparer.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Launcher is satisfied by *launch.Launcher. On success Launch never returns.
type Launcher interface {
	Launch(ctx context.Context, env environment.Config) error
}

// Verifier is a named read-only health check. Satisfied by *artifact.Preparer
// and *launch.Launcher.
type Verifier interface {
	Name() string
	Verify(ctx context.Context) error
}

// AssembleFunc builds the environment for the launched process. It must be
// pure: the orchestrator may call it more than once and expects identical
// results.
type AssembleFunc func() environment.Config

// Orchestrator wires the four stages together. Collaborators are interfaces
// so the pipeline is testable without Redis, subprocesses, or an exec.
type Orchestrator struct {
	tools    ToolChecker
	probe    Prober
	starter  Starter
	assemble AssembleFunc
	preparer Preparer
	launcher Launcher

	startTimeout time.Duration
	startBackoff time.Duration

	verifiers []Verifier

	runInProgress atomic.Bool
	lastResult    *RunResult
	resultMu      sync.RWMutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerifiers registers additional deep-health checks beyond the dependency
// probe.
func WithVerifiers(vs ...Verifier) Option {
	return func(o *Orchestrator) {
		o.verifiers = append(o.verifiers, vs...)
	}
}

// New constructs an Orchestrator. startTimeout bounds the wait for a spawned
// dependency server; startBackoff is the single sleep before the re-probe.
func New(
	tools ToolChecker,
	probe Prober,
	starter Starter,
	assemble AssembleFunc,
	preparer Preparer,
	launcher Launcher,
	startTimeout, startBackoff time.Duration,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		tools:        tools,
		probe:        probe,
		starter:      starter,
		assemble:     assemble,
		preparer:     preparer,
		launcher:     launcher,
		startTimeout: startTimeout,
		startBackoff: startBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes all four stages. When every stage succeeds the final launch
// replaces the process image, so a returned *RunResult always describes a
// failed or launch-skipped run. Returns ErrRunInProgress if a run is active.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	return o.run(ctx, true)
}

// Prepare executes stages 1-3 and skips the launch. Used by server mode,
// where replacing the serving process is not an option.
func (o *Orchestrator) Prepare(ctx context.Context) (*RunResult, error) {
	return o.run(ctx, false)
}

func (o *Orchestrator) run(ctx context.Context, withLaunch bool) (*RunResult, error) {
	if !o.runInProgress.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.runInProgress.Store(false)

	result := &RunResult{
		ID:     uuid.NewString(),
		Status: StatusInProgress,
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ignition.bootstrap")
	defer span.End()

	slog.InfoContext(ctx, "bootstrap started", "run_id", result.ID, "launch", withLaunch)

	var env environment.Config

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageDependency, o.EnsureDependency},
		{StageEnvironment, func(context.Context) error {
			env = o.assemble()
			return nil
		}},
		{StageArtifact, o.preparer.Prepare},
		{StageLaunch, func(ctx context.Context) error {
			// Only returns on failure; success replaces this process.
			return o.launcher.Launch(ctx, env)
		}},
	}

	var runErr error

	for _, stage := range stages {
		if runErr != nil {
			result.Stages = append(result.Stages, StageResult{
				Name:   stage.name,
				Status: StatusSkipped,
			})
			continue
		}
		if !withLaunch && stage.name == StageLaunch {
			result.Stages = append(result.Stages, StageResult{
				Name:   stage.name,
				Status: StatusSkipped,
			})
			continue
		}

		stageCtx, stageSpan := otel.Tracer(tracerName).Start(ctx, "ignition.stage."+stage.name)
		err := stage.fn(stageCtx)
		if err != nil {
			stageSpan.SetStatus(codes.Error, err.Error())
			stageSpan.End()
			slog.WarnContext(ctx, "bootstrap stage failed", "stage", stage.name, "error", err)
			result.Stages = append(result.Stages, StageResult{
				Name:   stage.name,
				Status: StatusError,
				Error:  err.Error(),
			})
			runErr = fmt.Errorf("%s stage: %w", stage.name, err)
			continue
		}
		stageSpan.SetStatus(codes.Ok, "")
		stageSpan.End()
		slog.InfoContext(ctx, "bootstrap stage ok", "stage", stage.name)
		result.Stages = append(result.Stages, StageResult{
			Name:   stage.name,
			Status: StatusOK,
		})
	}

	result.Status = StatusOK
	if runErr != nil {
		result.Status = StatusError
	}

	span.SetAttributes(attribute.String("bootstrap.status", result.Status))
	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	o.resultMu.Lock()
	o.lastResult = result
	o.resultMu.Unlock()

	return result, runErr
}

// EnsureDependency is the readiness check: toolchain precheck, probe, and on
// failure one detached spawn followed by exactly one re-probe after a fixed
// backoff. The spawned server is never stopped afterwards.
func (o *Orchestrator) EnsureDependency(ctx context.Context) error {
	if err := o.tools.Check(); err != nil {
		return err
	}

	if res := o.probe.Probe(ctx); res.OK {
		slog.InfoContext(ctx, "dependency reachable", "name", res.Name, "latency_ms", res.LatencyMs)
		return nil
	}

	slog.InfoContext(ctx, "dependency unreachable, starting server")

	if err := o.starter.Start(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.startTimeout)
	defer cancel()

	select {
	case <-time.After(o.startBackoff):
	case <-waitCtx.Done():
		return fmt.Errorf("%w: waiting for spawned server: %v", ErrStartFailed, waitCtx.Err())
	}

	res := o.probe.Probe(waitCtx)
	if !res.OK {
		return fmt.Errorf("%w: %s still unreachable after spawn: %s",
			ErrStartFailed, res.Name, res.Error)
	}

	slog.InfoContext(ctx, "dependency reachable after spawn", "name", res.Name, "latency_ms", res.LatencyMs)
	return nil
}

// DeepHealth probes the dependency and runs all registered verifiers
// concurrently, returning a map keyed by check name.
func (o *Orchestrator) DeepHealth(ctx context.Context) map[string]ProbeResult {
	results := make(map[string]ProbeResult, 1+len(o.verifiers))
	var mu sync.Mutex
	var g errgroup.Group

	g.Go(func() error {
		probe := o.probe.Probe(ctx)
		mu.Lock()
		results[probe.Name] = probe
		mu.Unlock()
		return nil
	})

	for _, v := range o.verifiers {
		g.Go(func() error {
			start := time.Now()
			err := v.Verify(ctx)
			res := ProbeResult{
				Name:      v.Name(),
				OK:        err == nil,
				LatencyMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Error = err.Error()
			}
			mu.Lock()
			results[v.Name()] = res
			mu.Unlock()
			return nil
		})
	}

	// Wait never returns an error because all goroutines return nil.
	_ = g.Wait()
	return results
}

// IsRunInProgress returns true while a bootstrap run is active.
func (o *Orchestrator) IsRunInProgress() bool {
	return o.runInProgress.Load()
}

// IsReady returns true if the last run completed with StatusOK.
func (o *Orchestrator) IsReady() bool {
	o.resultMu.RLock()
	defer o.resultMu.RUnlock()
	return o.lastResult != nil && o.lastResult.Status == StatusOK
}

// LastResult returns the most recent run result, or nil before the first run.
func (o *Orchestrator) LastResult() *RunResult {
	o.resultMu.RLock()
	defer o.resultMu.RUnlock()
	return o.lastResult
}
