package local

import (
	"context"
	"strings"
	"testing"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

func TestRunCapturesOutput(t *testing.T) {
	r := NewRunner()

	result, err := r.Run(context.Background(), engine.Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stdout != "out" {
		t.Errorf("stdout = %q, want out", result.Stdout)
	}
	if result.Stderr != "err" {
		t.Errorf("stderr = %q, want err", result.Stderr)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
}

func TestRunReportsExitCodeWithoutError(t *testing.T) {
	r := NewRunner()

	result, err := r.Run(context.Background(), engine.Command{
		Name: "sh",
		Args: []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error from Run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestRunLaunchFailure(t *testing.T) {
	r := NewRunner()

	_, err := r.Run(context.Background(), engine.Command{Name: "/nonexistent/deployctl-test-binary"})
	if err == nil {
		t.Fatal("expected launch failure")
	}
}

func TestRunOrFailClassifiesNonZeroExit(t *testing.T) {
	r := NewRunner()

	_, err := r.RunOrFail(context.Background(), engine.Command{
		Name: "sh",
		Args: []string{"-c", "echo broken >&2; exit 7"},
	})
	if !engine.IsCommandFailure(err) {
		t.Fatalf("expected command failure classification, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "exit") && !strings.Contains(msg, "7") {
		t.Errorf("error %q does not carry the exit code", msg)
	}
	if !strings.Contains(msg, "sh -c") {
		t.Errorf("error %q does not carry the command text", msg)
	}
}

func TestRunExtraEnv(t *testing.T) {
	r := NewRunner()

	result, err := r.RunOrFail(context.Background(), engine.Command{
		Name: "sh",
		Args: []string{"-c", "echo $DEPLOYCTL_TEST_VAR"},
		Env:  []string{"DEPLOYCTL_TEST_VAR=scoped"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stdout != "scoped" {
		t.Errorf("stdout = %q, want scoped", result.Stdout)
	}
}
