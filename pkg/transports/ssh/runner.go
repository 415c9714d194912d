package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

// Runner implements engine.CommandRunner over an SSH connection. The
// platform CLIs (aws, helm, kubectl) run on the remote host, which is
// useful when the pipeline runner has no direct access to the target
// environment.
type Runner struct {
	client *Client
}

// NewRunner creates a command runner backed by the given client. The
// client must be connected before the first Run call.
func NewRunner(client *Client) *Runner {
	return &Runner{client: client}
}

// Run executes the command on the remote host and captures its output.
// A non-zero exit is reported through the result, not the error; the
// error return is reserved for connection and session failures.
func (r *Runner) Run(ctx context.Context, cmd engine.Command) (engine.CommandResult, error) {
	start := time.Now()

	conn, err := r.client.getConn()
	if err != nil {
		return engine.CommandResult{}, err
	}

	session, err := conn.NewSession()
	if err != nil {
		return engine.CommandResult{}, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	line := remoteCommandLine(cmd)
	log.Debug().
		Str("host", r.client.config.Host).
		Str("command", cmd.Name).
		Strs("args", cmd.Args).
		Msg("executing remote command")

	doneChan := make(chan error, 1)
	go func() {
		doneChan <- session.Run(line)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		time.Sleep(100 * time.Millisecond)
		_ = session.Signal(ssh.SIGKILL)
		runErr = ctx.Err()
	case runErr = <-doneChan:
	}

	result := engine.CommandResult{
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			runErr = nil
		}
	}

	log.Debug().
		Str("host", r.client.config.Host).
		Str("command", cmd.Name).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("remote command finished")

	return result, runErr
}

// RunOrFail executes the command and converts a non-zero exit into a
// classified command error carrying the command text and exit code.
func (r *Runner) RunOrFail(ctx context.Context, cmd engine.Command) (engine.CommandResult, error) {
	result, err := r.Run(ctx, cmd)
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		text := strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
		return result, engine.NewCommandError(text, result.ExitCode, errors.New(result.Stderr))
	}
	return result, nil
}

// remoteCommandLine renders the command as a shell line for the remote
// session. Extra environment is prefixed as assignments and the working
// directory becomes a cd, both shell-quoted.
func remoteCommandLine(cmd engine.Command) string {
	var sb strings.Builder

	if cmd.Dir != "" {
		sb.WriteString("cd ")
		sb.WriteString(shellQuote(cmd.Dir))
		sb.WriteString(" && ")
	}
	for _, kv := range cmd.Env {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(shellQuote(value))
		sb.WriteString(" ")
	}

	sb.WriteString(shellQuote(cmd.Name))
	for _, arg := range cmd.Args {
		sb.WriteString(" ")
		sb.WriteString(shellQuote(arg))
	}
	return sb.String()
}

// shellQuote single-quotes a token for POSIX sh, escaping embedded
// single quotes.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$&|;<>(){}*?[]#~`!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
