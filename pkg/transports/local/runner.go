// Package local executes deployment platform commands as local child
// processes. It is the default command transport: the platform CLIs (aws,
// helm, kubectl) are expected on PATH of the invoking pipeline runner.
package local

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

// Runner implements engine.CommandRunner with os/exec.
type Runner struct{}

// NewRunner creates a local command runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the command and captures its output. A non-zero exit is
// reported through the result, not the error; the error return is
// reserved for launch failures.
func (r *Runner) Run(ctx context.Context, cmd engine.Command) (engine.CommandResult, error) {
	start := time.Now()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	log.Debug().
		Str("command", cmd.Name).
		Strs("args", cmd.Args).
		Msg("executing command")

	err := c.Run()
	result := engine.CommandResult{
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			err = nil
		} else if ctx.Err() != nil {
			err = ctx.Err()
		}
	}

	log.Debug().
		Str("command", cmd.Name).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("command finished")

	return result, err
}

// RunOrFail executes the command and converts a non-zero exit into a
// classified command error carrying the command text and exit code.
func (r *Runner) RunOrFail(ctx context.Context, cmd engine.Command) (engine.CommandResult, error) {
	result, err := r.Run(ctx, cmd)
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		text := commandText(cmd)
		return result, engine.NewCommandError(text, result.ExitCode, errors.New(result.Stderr))
	}
	return result, nil
}

func commandText(cmd engine.Command) string {
	return strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
}
