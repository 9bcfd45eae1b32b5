package clients

import (
	"fmt"
	"os/exec"

	"github.com/voxhall/ignition/internal/orchestrator"
)

// Toolchain verifies that the dependency's client tool is installed before any
// probe or spawn is attempted. The launched server shells out to the same tool,
// so a missing binary makes the whole run pointless.
type Toolchain struct {
	ClientBinary string

	lookPath func(file string) (string, error)
}

// NewToolchain builds a Toolchain for the given client binary name.
func NewToolchain(clientBinary string) *Toolchain {
	return &Toolchain{
		ClientBinary: clientBinary,
		lookPath:     exec.LookPath,
	}
}

// Check returns ErrClientNotInstalled if the client binary is not on PATH.
func (t *Toolchain) Check() error {
	if _, err := t.lookPath(t.ClientBinary); err != nil {
		return fmt.Errorf("%w: %s: %v", orchestrator.ErrClientNotInstalled, t.ClientBinary, err)
	}
	return nil
}
