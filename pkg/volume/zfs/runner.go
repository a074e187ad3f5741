package zfs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one zfs invocation. It exists as a seam so tests can
// substitute canned output for the real binary.
type Runner interface {
	// Run executes the zfs binary with args, feeding stdin to the process
	// when non-nil, and returns captured stdout. A non-zero exit returns a
	// *CommandError carrying the captured stderr.
	Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error)
}

// CommandError reports a failed zfs invocation together with whatever the
// binary wrote to stderr, which is the only diagnostic channel zfs offers.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("zfs %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("zfs %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error { return e.Err }

type execRunner struct {
	bin string
}

func (r *execRunner) Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}
