package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleReferenceScenario(t *testing.T) {
	t.Parallel()

	// cwd=/proj, gpu on, onnx off, everything else defaulted.
	cfg := Assemble("/proj", Flags{GPUEnabled: true})

	got := func(name string) string {
		v, ok := cfg.Get(name)
		require.True(t, ok, "missing %s", name)
		return v
	}

	assert.Equal(t, "true", got(VarUseGPU))
	assert.Equal(t, "false", got(VarUseONNX))
	assert.Equal(t, "/proj:/proj/api", got(VarModulePath))
	assert.Equal(t, "/proj/src/models", got(VarModelDir))
	assert.Equal(t, "/proj/src/voices/v1_0", got(VarVoicesDir))
	assert.Equal(t, "/proj/web", got(VarWebPlayerPath))
}

func TestAssembleIsDeterministic(t *testing.T) {
	t.Parallel()

	flags := Flags{
		GPUEnabled:    true,
		ONNXEnabled:   true,
		ModelDir:      "models/v2",
		VoicesDir:     "/srv/voices",
		WebPlayerPath: "player",
		ModulePaths:   []string{".", "api", "/opt/lib"},
	}

	first := Assemble("/app", flags)
	second := Assemble("/app", flags)

	assert.Equal(t, first.Vars(), second.Vars())
	assert.Equal(t, first.Environ(), second.Environ())
}

func TestAssembleResolvesPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cwd   string
		flags Flags
		check func(t *testing.T, cfg Config)
	}{
		{
			name:  "relative paths joined to cwd",
			cwd:   "/work",
			flags: Flags{ModelDir: "data/models"},
			check: func(t *testing.T, cfg Config) {
				v, _ := cfg.Get(VarModelDir)
				assert.Equal(t, "/work/data/models", v)
			},
		},
		{
			name:  "absolute paths pass through cleaned",
			cwd:   "/work",
			flags: Flags{VoicesDir: "/srv//voices/"},
			check: func(t *testing.T, cfg Config) {
				v, _ := cfg.Get(VarVoicesDir)
				assert.Equal(t, "/srv/voices", v)
			},
		},
		{
			name:  "module paths keep their order",
			cwd:   "/work",
			flags: Flags{ModulePaths: []string{"b", "a", "/z"}},
			check: func(t *testing.T, cfg Config) {
				v, _ := cfg.Get(VarModulePath)
				assert.Equal(t, "/work/b:/work/a:/z", v)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.check(t, Assemble(tc.cwd, tc.flags))
		})
	}
}

func TestConfigOrderingAndCopies(t *testing.T) {
	t.Parallel()

	cfg := Assemble("/proj", Flags{})

	wantOrder := []string{
		VarUseGPU, VarUseONNX, VarModulePath,
		VarModelDir, VarVoicesDir, VarWebPlayerPath,
	}

	vars := cfg.Vars()
	require.Len(t, vars, len(wantOrder))
	for i, name := range wantOrder {
		assert.Equal(t, name, vars[i].Name)
	}

	// Mutating the returned slice must not affect the Config.
	vars[0].Value = "mutated"
	again := cfg.Vars()
	assert.Equal(t, "false", again[0].Value)
}

func TestEnvironFormat(t *testing.T) {
	t.Parallel()

	cfg := Assemble("/proj", Flags{GPUEnabled: true})
	environ := cfg.Environ()

	require.NotEmpty(t, environ)
	assert.Equal(t, "USE_GPU=true", environ[0])
	for _, kv := range environ {
		assert.Contains(t, kv, "=")
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	cfg := Assemble("/proj", Flags{})
	_, ok := cfg.Get("NOT_A_VAR")
	assert.False(t, ok)
	assert.Equal(t, 6, cfg.Len())
}
