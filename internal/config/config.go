package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Dependency kinds accepted in bootstrap.dependency.kind.
const (
	DependencyRedis = "redis"
	DependencyNATS  = "nats"
)

// Config is the root configuration for Ignition.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
	LogLevel     string `mapstructure:"log_level"`
}

// BootstrapConfig configures the four launch stages: dependency readiness,
// environment assembly, artifact preparation, and process launch.
type BootstrapConfig struct {
	// StartTimeout bounds how long a freshly spawned dependency server may
	// take to become reachable. StartBackoff is the single sleep interval
	// between spawn and re-probe.
	StartTimeout time.Duration     `mapstructure:"start_timeout"`
	StartBackoff time.Duration     `mapstructure:"start_backoff"`
	Dependency   DependencyConfig  `mapstructure:"dependency"`
	Environment  EnvironmentConfig `mapstructure:"environment"`
	Artifact     ArtifactConfig    `mapstructure:"artifact"`
	Launch       LaunchConfig      `mapstructure:"launch"`
}

// DependencyConfig identifies the cache/broker service the launched process
// needs, plus the local binaries used to verify and start it.
type DependencyConfig struct {
	Kind     string `mapstructure:"kind"` // "redis" or "nats"
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	URL      string `mapstructure:"url"` // nats only

	ClientBinary string   `mapstructure:"client_binary"`
	ServerBinary string   `mapstructure:"server_binary"`
	ServerArgs   []string `mapstructure:"server_args"`
}

// EnvironmentConfig holds the feature flags and paths handed to the launched
// process. Relative paths are resolved against the working directory at
// assembly time, not here.
type EnvironmentConfig struct {
	GPUEnabled    bool     `mapstructure:"gpu_enabled"`
	ONNXEnabled   bool     `mapstructure:"onnx_enabled"`
	ModelDir      string   `mapstructure:"model_dir"`
	VoicesDir     string   `mapstructure:"voices_dir"`
	WebPlayerPath string   `mapstructure:"web_player_path"`
	ModulePaths   []string `mapstructure:"module_paths"`
}

type ArtifactConfig struct {
	Installer  CommandConfig `mapstructure:"installer"`
	Downloader CommandConfig `mapstructure:"downloader"`
	WorkDir    string        `mapstructure:"work_dir"`
}

type CommandConfig struct {
	Path string   `mapstructure:"path"`
	Args []string `mapstructure:"args"`
}

type LaunchConfig struct {
	Executable string   `mapstructure:"executable"`
	Args       []string `mapstructure:"args"`
	WorkDir    string   `mapstructure:"work_dir"`
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the IGNITION_ prefix (e.g. IGNITION_SERVER_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("IGNITION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Bootstrap.Dependency.Kind != DependencyRedis && cfg.Bootstrap.Dependency.Kind != DependencyNATS {
		return nil, fmt.Errorf("unknown dependency kind %q", cfg.Bootstrap.Dependency.Kind)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8881)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "ignition")
	v.SetDefault("telemetry.log_level", "info")

	v.SetDefault("bootstrap.start_timeout", 10*time.Second)
	v.SetDefault("bootstrap.start_backoff", time.Second)

	v.SetDefault("bootstrap.dependency.kind", DependencyRedis)
	v.SetDefault("bootstrap.dependency.host", "localhost")
	v.SetDefault("bootstrap.dependency.port", 6379)
	v.SetDefault("bootstrap.dependency.db", 0)
	v.SetDefault("bootstrap.dependency.url", "nats://localhost:4222")
	v.SetDefault("bootstrap.dependency.client_binary", "redis-cli")
	v.SetDefault("bootstrap.dependency.server_binary", "redis-server")
	v.SetDefault("bootstrap.dependency.server_args", []string{"--daemonize", "yes"})

	v.SetDefault("bootstrap.environment.gpu_enabled", false)
	v.SetDefault("bootstrap.environment.onnx_enabled", false)
	v.SetDefault("bootstrap.environment.model_dir", "src/models")
	v.SetDefault("bootstrap.environment.voices_dir", "src/voices/v1_0")
	v.SetDefault("bootstrap.environment.web_player_path", "web")
	v.SetDefault("bootstrap.environment.module_paths", []string{".", "api"})

	v.SetDefault("bootstrap.artifact.installer.path", "uv")
	v.SetDefault("bootstrap.artifact.downloader.path", "python")
	v.SetDefault("bootstrap.artifact.downloader.args", []string{
		"docker/scripts/download_model.py", "--output", "api/src/models/v1_0",
	})

	v.SetDefault("bootstrap.launch.executable", "uv")
	v.SetDefault("bootstrap.launch.args", []string{
		"run", "--no-sync", "uvicorn", "api.src.main:app",
		"--host", "0.0.0.0", "--port", "8880",
	})
}
