package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/voxhall/ignition/internal/api"
	"github.com/voxhall/ignition/internal/artifact"
	"github.com/voxhall/ignition/internal/clients"
	"github.com/voxhall/ignition/internal/config"
	"github.com/voxhall/ignition/internal/environment"
	"github.com/voxhall/ignition/internal/launch"
	"github.com/voxhall/ignition/internal/orchestrator"
	"github.com/voxhall/ignition/internal/telemetry"
)

// AppContext holds all constructed application dependencies shared across
// subcommands. It is built once in PersistentPreRunE.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	orchestrator *orchestrator.Orchestrator
	router       *api.Router
	environment  environment.Config
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Initialises the OTEL provider (best-effort, non-fatal)
//  2. Creates the dependency prober, toolchain check, and server starter
//  3. Assembles the launch environment from the working directory and flags
//  4. Creates the artifact preparer and process launcher
//  5. Creates the orchestrator and the HTTP router
func buildAppContext(cfg *config.Config) (*AppContext, error) {
	app := &AppContext{cfg: cfg}

	// OTEL is best-effort: a missing collector must never block a launch.
	// When OTLPEndpoint is empty, telemetry is disabled entirely.
	if cfg.Telemetry.OTLPEndpoint == "" {
		slog.Debug("OTEL telemetry disabled (no endpoint configured)")
	} else {
		tp, err := telemetry.InitProvider(
			context.Background(),
			cfg.Telemetry.OTLPEndpoint,
			cfg.Telemetry.ServiceName,
			cfg.Telemetry.OTLPInsecure,
		)
		if err != nil {
			slog.Warn("OTEL provider init failed, telemetry disabled", "err", err)
		} else {
			app.otelProvider = tp
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	dep := cfg.Bootstrap.Dependency

	var prober orchestrator.Prober
	switch dep.Kind {
	case config.DependencyRedis:
		prober = clients.NewRedisClient(dep, clients.NewCircuitBreaker("redis"))
	case config.DependencyNATS:
		prober = clients.NewNATSClient(dep, clients.NewCircuitBreaker("nats"))
	default:
		return nil, fmt.Errorf("unknown dependency kind %q", dep.Kind)
	}

	tools := clients.NewToolchain(dep.ClientBinary)
	starter := clients.NewServerStarter(dep.ServerBinary, dep.ServerArgs)

	flags := environment.Flags{
		GPUEnabled:    cfg.Bootstrap.Environment.GPUEnabled,
		ONNXEnabled:   cfg.Bootstrap.Environment.ONNXEnabled,
		ModelDir:      cfg.Bootstrap.Environment.ModelDir,
		VoicesDir:     cfg.Bootstrap.Environment.VoicesDir,
		WebPlayerPath: cfg.Bootstrap.Environment.WebPlayerPath,
		ModulePaths:   cfg.Bootstrap.Environment.ModulePaths,
	}
	app.environment = environment.Assemble(cwd, flags)

	artifactCfg := cfg.Bootstrap.Artifact
	if len(artifactCfg.Installer.Args) == 0 {
		artifactCfg.Installer.Args = artifact.DefaultInstallerArgs(flags.GPUEnabled, flags.ONNXEnabled)
	}
	if artifactCfg.WorkDir == "" {
		artifactCfg.WorkDir = cwd
	}

	modelDir, _ := app.environment.Get(environment.VarModelDir)
	preparer := artifact.NewPreparer(artifactCfg, modelDir)

	launcher := launch.New(launch.Spec{
		Executable: cfg.Bootstrap.Launch.Executable,
		Args:       cfg.Bootstrap.Launch.Args,
		Dir:        cfg.Bootstrap.Launch.WorkDir,
	})

	app.orchestrator = orchestrator.New(
		tools,
		prober,
		starter,
		func() environment.Config { return environment.Assemble(cwd, flags) },
		preparer,
		launcher,
		cfg.Bootstrap.StartTimeout,
		cfg.Bootstrap.StartBackoff,
		orchestrator.WithVerifiers(preparer, launcher),
	)
	app.router = api.NewRouter(app.orchestrator)

	return app, nil
}
