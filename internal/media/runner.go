package media

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an external media command. The renderer, assembler and
// mixer all build ffmpeg argument lists and hand them here, which keeps the
// invocation in one place and lets tests substitute a recorder.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands through the local ffmpeg install.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %v, output: %s", name, err, string(out))
	}
	return nil
}
