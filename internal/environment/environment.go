// Package environment assembles the immutable configuration handed to the
// launched server process. Assembly is a pure function of the working
// directory and the feature flags: no I/O, no process-global state.
package environment

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Variable names produced by Assemble, in output order.
const (
	VarUseGPU        = "USE_GPU"
	VarUseONNX       = "USE_ONNX"
	VarModulePath    = "PYTHONPATH"
	VarModelDir      = "MODEL_DIR"
	VarVoicesDir     = "VOICES_DIR"
	VarWebPlayerPath = "WEB_PLAYER_PATH"
)

// Defaults used for any Flags field left empty.
const (
	defaultModelDir      = "src/models"
	defaultVoicesDir     = "src/voices/v1_0"
	defaultWebPlayerPath = "web"
)

var defaultModulePaths = []string{".", "api"}

// Flags are the recognized bootstrap options. Zero values fall back to the
// defaults matching the reference deployment layout.
type Flags struct {
	GPUEnabled    bool
	ONNXEnabled   bool
	ModelDir      string
	VoicesDir     string
	WebPlayerPath string
	ModulePaths   []string
}

// Var is a single name/value pair.
type Var struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Config is an ordered, immutable set of environment variables. It is only
// constructed whole by Assemble; callers get copies, never the backing slice.
type Config struct {
	vars []Var
}

// Assemble builds the environment for the launched process. All relative
// paths are resolved against cwd; absolute paths pass through unchanged.
// Deterministic and total: identical inputs yield identical output.
func Assemble(cwd string, flags Flags) Config {
	modulePaths := flags.ModulePaths
	if len(modulePaths) == 0 {
		modulePaths = defaultModulePaths
	}

	resolved := make([]string, len(modulePaths))
	for i, p := range modulePaths {
		resolved[i] = resolve(cwd, p)
	}

	vars := []Var{
		{Name: VarUseGPU, Value: strconv.FormatBool(flags.GPUEnabled)},
		{Name: VarUseONNX, Value: strconv.FormatBool(flags.ONNXEnabled)},
		{Name: VarModulePath, Value: strings.Join(resolved, string(os.PathListSeparator))},
		{Name: VarModelDir, Value: resolve(cwd, orDefault(flags.ModelDir, defaultModelDir))},
		{Name: VarVoicesDir, Value: resolve(cwd, orDefault(flags.VoicesDir, defaultVoicesDir))},
		{Name: VarWebPlayerPath, Value: resolve(cwd, orDefault(flags.WebPlayerPath, defaultWebPlayerPath))},
	}

	return Config{vars: vars}
}

// Vars returns a copy of the variables in assembly order.
func (c Config) Vars() []Var {
	out := make([]Var, len(c.vars))
	copy(out, c.vars)
	return out
}

// Environ returns the variables as KEY=VALUE strings in assembly order,
// suitable for appending to a process environment.
func (c Config) Environ() []string {
	out := make([]string, len(c.vars))
	for i, v := range c.vars {
		out[i] = v.Name + "=" + v.Value
	}
	return out
}

// Get returns the value for name and whether it is present.
func (c Config) Get(name string) (string, bool) {
	for _, v := range c.vars {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Len returns the number of variables.
func (c Config) Len() int {
	return len(c.vars)
}

func resolve(cwd, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(cwd, p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
