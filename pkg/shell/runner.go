// Package shell runs the external display and window-system tools gammad
// depends on.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrToolMissing is returned when a required executable is not on PATH
var ErrToolMissing = errors.New("required tool not found")

// Runner executes external commands
type Runner interface {
	// Run executes name with args and returns its stdout
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Available reports whether the named executable can be found
	Available(name string) bool
}

// ExecRunner implements Runner with os/exec
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns stdout. Stderr is folded into the error.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// Available reports whether the named executable is on PATH
func (r *ExecRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Require returns ErrToolMissing for the first tool in names that is not available
func Require(r Runner, names ...string) error {
	for _, name := range names {
		if !r.Available(name) {
			return fmt.Errorf("%w: %s", ErrToolMissing, name)
		}
	}
	return nil
}
