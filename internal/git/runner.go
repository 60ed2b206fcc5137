package git

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/juparave/commitreminder/internal/domain"
)

// Runner executes git subcommands in a directory
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git binary
type ExecRunner struct {
	GitBin string
}

// NewExecRunner creates an ExecRunner, defaulting to "git" on PATH
func NewExecRunner(gitBin string) *ExecRunner {
	if strings.TrimSpace(gitBin) == "" {
		gitBin = "git"
	}
	return &ExecRunner{GitBin: gitBin}
}

// Run executes git with args in dir and returns stdout
func (e *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.GitBin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		operation := ""
		if len(args) > 0 {
			operation = args[0]
		}
		return "", &domain.GitError{
			Operation: operation,
			Args:      args,
			Output:    strings.TrimSpace(stderr.String()),
			Err:       err,
		}
	}

	return stdout.String(), nil
}
