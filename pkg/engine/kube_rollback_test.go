package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvvbapiraju/deployctl/pkg/health"
	"github.com/mvvbapiraju/deployctl/pkg/revision"
)

type mockReleaseService struct {
	history     []revision.Entry
	historyErr  error
	rollbackErr error

	rolledBackTo []int
}

func (m *mockReleaseService) History(ctx context.Context, release, namespace string) ([]revision.Entry, error) {
	return m.history, m.historyErr
}

func (m *mockReleaseService) Rollback(ctx context.Context, release string, rev int, namespace string, timeout time.Duration) error {
	if m.rollbackErr != nil {
		return m.rollbackErr
	}
	m.rolledBackTo = append(m.rolledBackTo, rev)
	return nil
}

type mockRolloutService struct {
	instances []health.Instance
	undoErr   error
	statusErr error

	undos       []int
	statusCalls int
	described   []string
	logFetches  []string
}

func (m *mockRolloutService) UndoRollout(ctx context.Context, kind, name, namespace string, toRevision int) error {
	if m.undoErr != nil {
		return m.undoErr
	}
	m.undos = append(m.undos, toRevision)
	return nil
}

func (m *mockRolloutService) RolloutStatus(ctx context.Context, kind, name, namespace string, timeout time.Duration) error {
	m.statusCalls++
	return m.statusErr
}

func (m *mockRolloutService) ListInstances(ctx context.Context, namespace, selector string) ([]health.Instance, error) {
	return m.instances, nil
}

func (m *mockRolloutService) DescribeInstance(ctx context.Context, namespace, name string) (string, error) {
	m.described = append(m.described, name)
	return "Events: Back-off restarting failed container", nil
}

func (m *mockRolloutService) InstanceLogs(ctx context.Context, namespace, name string, previous bool) (string, error) {
	m.logFetches = append(m.logFetches, name)
	return "panic: connection refused", nil
}

func TestKubeCoordinatorHelmAutoSelectsRevision(t *testing.T) {
	releases := &mockReleaseService{
		history: []revision.Entry{
			{Sequence: 1, Status: revision.StatusDeployed},
			{Sequence: 2, Status: revision.StatusSuperseded},
			{Sequence: 3, Status: revision.StatusDeployed},
		},
	}
	coord := NewKubeCoordinator(releases, nil)

	summary, err := coord.Rollback(context.Background(), KubeRollback{
		Mode:      KubeRollbackHelm,
		Release:   "payments",
		Namespace: "prod",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Revision != 2 {
		t.Errorf("selected revision %d, want 2", summary.Revision)
	}
	if len(releases.rolledBackTo) != 1 || releases.rolledBackTo[0] != 2 {
		t.Errorf("rolled back to %v, want [2]", releases.rolledBackTo)
	}
	if !summary.Stable {
		t.Error("summary does not report stable")
	}
}

func TestKubeCoordinatorHelmExplicitRevision(t *testing.T) {
	releases := &mockReleaseService{historyErr: errors.New("history must not be fetched")}
	coord := NewKubeCoordinator(releases, nil)

	summary, err := coord.Rollback(context.Background(), KubeRollback{
		Mode:      KubeRollbackHelm,
		Release:   "payments",
		Namespace: "prod",
		Revision:  7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Revision != 7 {
		t.Errorf("revision = %d, want the explicit 7", summary.Revision)
	}
}

func TestKubeCoordinatorHelmNoTarget(t *testing.T) {
	coord := NewKubeCoordinator(&mockReleaseService{}, nil)

	_, err := coord.Rollback(context.Background(), KubeRollback{
		Mode:      KubeRollbackHelm,
		Release:   "payments",
		Namespace: "prod",
	})
	if !revision.IsNoTarget(err) {
		t.Errorf("expected no-target error for empty history, got %v", err)
	}
}

func TestKubeCoordinatorKubectlUndoOneStepBack(t *testing.T) {
	rollouts := &mockRolloutService{}
	coord := NewKubeCoordinator(nil, rollouts)

	summary, err := coord.Rollback(context.Background(), KubeRollback{
		Mode:      KubeRollbackKubectl,
		Kind:      "deployment",
		Name:      "payments-api",
		Namespace: "prod",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rollouts.undos) != 1 || rollouts.undos[0] != 0 {
		t.Errorf("undos = %v, want [0] delegating one-step-back to the platform", rollouts.undos)
	}
	if rollouts.statusCalls != 1 {
		t.Errorf("rollout status checked %d times, want 1", rollouts.statusCalls)
	}
	if summary.Target != "deployment/payments-api" {
		t.Errorf("target = %q", summary.Target)
	}
}

func TestKubeCoordinatorStabilizeFailureIsFatal(t *testing.T) {
	rollouts := &mockRolloutService{statusErr: errors.New("deployment exceeded its progress deadline")}
	coord := NewKubeCoordinator(nil, rollouts)

	summary, err := coord.Rollback(context.Background(), KubeRollback{
		Mode:      KubeRollbackKubectl,
		Kind:      "deployment",
		Name:      "payments-api",
		Namespace: "prod",
	})
	if err == nil {
		t.Fatal("stabilization failure must propagate")
	}
	if summary.Stable {
		t.Error("summary claims a stable workload")
	}
}

func TestKubeCoordinatorDiagnosticsCaptured(t *testing.T) {
	rollouts := &mockRolloutService{
		instances: []health.Instance{
			{Name: "payments-api-0", Phase: health.PhaseRunning, Ready: true},
			{Name: "payments-api-1", Phase: health.PhaseRunning, Ready: false},
			{Name: "payments-api-2", Phase: health.PhasePending},
			{Name: "payments-api-3", Phase: health.PhaseFailed},
		},
	}
	coord := NewKubeCoordinator(nil, rollouts)

	summary, err := coord.Rollback(context.Background(), KubeRollback{
		Mode:           KubeRollbackKubectl,
		Kind:           "deployment",
		Name:           "payments-api",
		Namespace:      "prod",
		Selector:       "app=payments-api",
		MaxDiagnostics: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, capture := range [][]InstanceDiagnostic{summary.UnhealthyBefore, summary.UnhealthyAfter} {
		if len(capture) != 2 {
			t.Fatalf("diagnostics = %d instances, want capped at 2", len(capture))
		}
		if capture[0].Instance.Name != "payments-api-1" || capture[1].Instance.Name != "payments-api-2" {
			t.Errorf("diagnostics out of listing order: %+v", capture)
		}
		if capture[0].Description == "" || capture[0].Logs == "" {
			t.Errorf("diagnostic detail missing: %+v", capture[0])
		}
	}
}

func TestKubeCoordinatorValidation(t *testing.T) {
	coord := NewKubeCoordinator(&mockReleaseService{}, &mockRolloutService{})

	tests := []struct {
		name string
		req  KubeRollback
	}{
		{"missing namespace", KubeRollback{Mode: KubeRollbackHelm, Release: "payments"}},
		{"missing release", KubeRollback{Mode: KubeRollbackHelm, Namespace: "prod"}},
		{"missing workload", KubeRollback{Mode: KubeRollbackKubectl, Namespace: "prod"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := coord.Rollback(context.Background(), tt.req); !IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	_, err := coord.Rollback(context.Background(), KubeRollback{Mode: "rebootCluster", Namespace: "prod"})
	if !IsUnsupportedMode(err) {
		t.Errorf("unknown mode: got %v", err)
	}
}
