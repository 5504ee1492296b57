package pack

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Validate that execRunner implements the Runner interface
var _ Runner = (*execRunner)(nil)

// execRunner runs the build tool as a subprocess, streaming its output.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}
