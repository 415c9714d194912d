package kubernetes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mvvbapiraju/deployctl/pkg/health"
)

func TestUndoRolloutOneStepBack(t *testing.T) {
	runner := newFakeRunner()
	client := NewKubectlClient(runner, "")

	if err := client.UndoRollout(context.Background(), "deployment", "payments-api", "prod", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := runner.lastCommand(t)
	if !strings.Contains(text, "rollout undo deployment/payments-api") {
		t.Errorf("command = %s", text)
	}
	if strings.Contains(text, "--to-revision") {
		t.Errorf("zero revision must delegate one-step-back to the platform: %s", text)
	}
}

func TestUndoRolloutExplicitRevision(t *testing.T) {
	runner := newFakeRunner()
	client := NewKubectlClient(runner, "prod-cluster")

	if err := client.UndoRollout(context.Background(), "deployment", "payments-api", "prod", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := runner.lastCommand(t)
	if !strings.Contains(text, "--to-revision=4") {
		t.Errorf("command = %s", text)
	}
	if !strings.Contains(text, "--context prod-cluster") {
		t.Errorf("kube context missing: %s", text)
	}
}

func TestRolloutStatusTimeoutFlag(t *testing.T) {
	runner := newFakeRunner()
	client := NewKubectlClient(runner, "")

	if err := client.RolloutStatus(context.Background(), "deployment", "payments-api", "prod", 5*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := runner.lastCommand(t); !strings.Contains(text, "--timeout 5m0s") {
		t.Errorf("command = %s", text)
	}
}

func TestListInstancesReadiness(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("get pods", `{
		"items": [
			{
				"metadata": {"name": "payments-api-0"},
				"status": {"phase": "Running", "conditions": [{"type": "Ready", "status": "True"}]}
			},
			{
				"metadata": {"name": "payments-api-1"},
				"status": {"phase": "Running", "conditions": [{"type": "Ready", "status": "False"}]}
			},
			{
				"metadata": {"name": "payments-api-2"},
				"status": {"phase": "Pending"}
			}
		]
	}`)
	client := NewKubectlClient(runner, "")

	instances, err := client.ListInstances(context.Background(), "prod", "app=payments-api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("got %d instances, want 3", len(instances))
	}
	if !instances[0].Ready || instances[1].Ready || instances[2].Ready {
		t.Errorf("readiness = %v %v %v, want true false false",
			instances[0].Ready, instances[1].Ready, instances[2].Ready)
	}
	if instances[2].Phase != health.PhasePending {
		t.Errorf("phase = %s, want Pending", instances[2].Phase)
	}

	unhealthy := health.Unhealthy(instances, 0)
	if len(unhealthy) != 2 {
		t.Errorf("unhealthy = %d, want 2", len(unhealthy))
	}
}

func TestInstanceLogsPreviousFlag(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("logs payments-api-1", "panic: connection refused")
	client := NewKubectlClient(runner, "")

	logs, err := client.InstanceLogs(context.Background(), "prod", "payments-api-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs != "panic: connection refused" {
		t.Errorf("logs = %q", logs)
	}
	if text := runner.lastCommand(t); !strings.Contains(text, "--previous") {
		t.Errorf("previous flag missing: %s", text)
	}
}
