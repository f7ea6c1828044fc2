package hyprlax

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

var (
	ErrBinaryNotFound = errors.New("hyprlax binary not found in PATH")
	ErrCommandFailed  = errors.New("hyprlax command failed")
)

// Runner executes one `hyprlax ctl` invocation and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs the real binary as a subprocess.
type ExecRunner struct {
	Binary string
}

func (r ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	bin := r.Binary
	if bin == "" {
		bin = "hyprlax"
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{"ctl"}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, bin)
		}
		return stdout.String(), fmt.Errorf("%w: %s: %v: %s",
			ErrCommandFailed, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
