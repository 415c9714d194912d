package ssh

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

func TestRemoteCommandLine(t *testing.T) {
	tests := []struct {
		name string
		cmd  engine.Command
		want string
	}{
		{
			name: "plain command",
			cmd:  engine.Command{Name: "helm", Args: []string{"history", "orders", "-o", "json"}},
			want: "helm history orders -o json",
		},
		{
			name: "argument with spaces",
			cmd:  engine.Command{Name: "aws", Args: []string{"deploy", "stop-deployment", "--deployment-id", "d 1"}},
			want: "aws deploy stop-deployment --deployment-id 'd 1'",
		},
		{
			name: "argument with single quote",
			cmd:  engine.Command{Name: "echo", Args: []string{"it's"}},
			want: `echo 'it'\''s'`,
		},
		{
			name: "json argument",
			cmd:  engine.Command{Name: "aws", Args: []string{"--cli-input-json", `{"a":1}`}},
			want: `aws --cli-input-json '{"a":1}'`,
		},
		{
			name: "working directory",
			cmd:  engine.Command{Name: "ls", Dir: "/tmp/deployctl"},
			want: "cd /tmp/deployctl && ls",
		},
		{
			name: "extra environment",
			cmd: engine.Command{
				Name: "aws",
				Args: []string{"sts", "get-caller-identity"},
				Env:  []string{"AWS_DEFAULT_REGION=eu-west-1", "AWS_SESSION_TOKEN=tok en"},
			},
			want: "AWS_DEFAULT_REGION=eu-west-1 AWS_SESSION_TOKEN='tok en' aws sts get-caller-identity",
		},
		{
			name: "malformed env entry skipped",
			cmd: engine.Command{
				Name: "true",
				Env:  []string{"NOT_AN_ASSIGNMENT"},
			},
			want: "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remoteCommandLine(tt.cmd); got != tt.want {
				t.Errorf("remoteCommandLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", "''"},
		{"has space", "'has space'"},
		{"a$b", "'a$b'"},
		{"semi;colon", "'semi;colon'"},
		{`it's`, `'it'\''s'`},
	}

	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRunnerNotConnected(t *testing.T) {
	keyPath := writeTestKey(t)

	config := DefaultConfig("example.com", "deployer")
	config.PrivateKeyPath = keyPath

	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	runner := NewRunner(client)
	if _, err := runner.Run(context.Background(), engine.Command{Name: "true"}); err == nil {
		t.Error("expected error for disconnected client, got nil")
	}
}

func TestStagerNotConnected(t *testing.T) {
	keyPath := writeTestKey(t)

	config := DefaultConfig("example.com", "deployer")
	config.PrivateKeyPath = keyPath

	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	bundle := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(bundle, []byte("payload"), 0600); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}

	stager := NewStager(client)
	if _, err := stager.Stage(context.Background(), bundle); err == nil {
		t.Error("expected error for disconnected client, got nil")
	}
}
