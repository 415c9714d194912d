package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/health"
	"github.com/mvvbapiraju/deployctl/pkg/revision"
)

// KubeCoordinator rolls back workloads on the rolling-deployment
// platform, either through the release manager's revision history or
// through the workload's own rollout undo. Unlike the blue/green
// coordinator there is no best-effort path: a rollback or stabilization
// failure is fatal.
type KubeCoordinator struct {
	releases ReleaseService
	rollouts RolloutService
}

// NewKubeCoordinator creates a kube rollback coordinator. releases may
// be nil when only the kubectlUndo mode is used, and rollouts may be nil
// when only helmRollback without diagnostics is used.
func NewKubeCoordinator(releases ReleaseService, rollouts RolloutService) *KubeCoordinator {
	return &KubeCoordinator{
		releases: releases,
		rollouts: rollouts,
	}
}

// Rollback executes the request: capture diagnostics, roll back, wait
// for the workload to stabilize, capture diagnostics again. Diagnostics
// are observational only and never influence the rollback decision.
func (c *KubeCoordinator) Rollback(ctx context.Context, req KubeRollback) (KubeRollbackSummary, error) {
	if err := c.validate(req); err != nil {
		return KubeRollbackSummary{}, err
	}

	summary := KubeRollbackSummary{
		Mode:   req.Mode,
		Target: c.target(req),
	}
	summary.UnhealthyBefore = c.captureDiagnostics(ctx, req)

	var err error
	switch req.Mode {
	case KubeRollbackHelm:
		summary.Revision, err = c.helmRollback(ctx, req)
	case KubeRollbackKubectl:
		summary.Revision = req.Revision
		err = c.kubectlUndo(ctx, req)
	default:
		err = NewUnsupportedModeError(string(req.Mode))
	}
	if err != nil {
		summary.UnhealthyAfter = c.captureDiagnostics(ctx, req)
		return summary, err
	}
	summary.Stable = true

	summary.UnhealthyAfter = c.captureDiagnostics(ctx, req)
	log.Info().
		Str("mode", string(req.Mode)).
		Str("target", summary.Target).
		Int("revision", summary.Revision).
		Int("unhealthy_before", len(summary.UnhealthyBefore)).
		Int("unhealthy_after", len(summary.UnhealthyAfter)).
		Msg("rollback complete")
	return summary, nil
}

func (c *KubeCoordinator) validate(req KubeRollback) error {
	if err := req.Mode.Validate(); err != nil {
		return err
	}
	if req.Namespace == "" {
		return NewValidationError("namespace is required")
	}
	switch req.Mode {
	case KubeRollbackHelm:
		if req.Release == "" {
			return NewValidationError("helm rollback requires a release name")
		}
		if c.releases == nil {
			return NewValidationError("helm rollback requires a release service")
		}
	case KubeRollbackKubectl:
		if req.Kind == "" || req.Name == "" {
			return NewValidationError("kubectl rollback requires workload kind and name")
		}
		if c.rollouts == nil {
			return NewValidationError("kubectl rollback requires a rollout service")
		}
	}
	return nil
}

func (c *KubeCoordinator) target(req KubeRollback) string {
	if req.Mode == KubeRollbackHelm {
		return req.Release
	}
	return fmt.Sprintf("%s/%s", req.Kind, req.Name)
}

// helmRollback rolls the release back through its revision history. An
// explicit revision is used as given; otherwise the target is selected
// from a fresh history fetch.
func (c *KubeCoordinator) helmRollback(ctx context.Context, req KubeRollback) (int, error) {
	rev := req.Revision
	if rev == 0 {
		history, err := c.releases.History(ctx, req.Release, req.Namespace)
		if err != nil {
			return 0, err
		}
		target, err := revision.SelectRollbackTarget(history)
		if err != nil {
			return 0, err
		}
		rev = target.Sequence
		log.Info().
			Str("release", req.Release).
			Int("revision", rev).
			Str("status", string(target.Status)).
			Msg("rollback target selected from history")
	}

	timeout := req.StabilizeTimeout
	if timeout <= 0 {
		timeout = DefaultStabilizeTimeout
	}
	if err := c.releases.Rollback(ctx, req.Release, rev, req.Namespace, timeout); err != nil {
		return rev, err
	}
	return rev, nil
}

// kubectlUndo reverts the workload rollout and waits for it to report
// complete. A zero revision delegates "one step back" to the platform.
func (c *KubeCoordinator) kubectlUndo(ctx context.Context, req KubeRollback) error {
	if err := c.rollouts.UndoRollout(ctx, req.Kind, req.Name, req.Namespace, req.Revision); err != nil {
		return err
	}

	timeout := req.StabilizeTimeout
	if timeout <= 0 {
		timeout = DefaultStabilizeTimeout
	}
	return c.rollouts.RolloutStatus(ctx, req.Kind, req.Name, req.Namespace, timeout)
}

// captureDiagnostics lists instances, classifies them, and describes the
// first MaxDiagnostics unhealthy ones. Diagnostic failures are logged
// and skipped so a broken read path cannot break the rollback itself.
func (c *KubeCoordinator) captureDiagnostics(ctx context.Context, req KubeRollback) []InstanceDiagnostic {
	if c.rollouts == nil || req.Selector == "" {
		return nil
	}

	instances, err := c.rollouts.ListInstances(ctx, req.Namespace, req.Selector)
	if err != nil {
		log.Warn().
			Str("namespace", req.Namespace).
			Str("selector", req.Selector).
			Err(err).
			Msg("cannot list instances for diagnostics")
		return nil
	}

	max := req.MaxDiagnostics
	if max <= 0 {
		max = DefaultMaxDiagnostics
	}

	var diagnostics []InstanceDiagnostic
	for _, inst := range health.Unhealthy(instances, max) {
		diag := InstanceDiagnostic{Instance: inst}
		if desc, err := c.rollouts.DescribeInstance(ctx, req.Namespace, inst.Name); err == nil {
			diag.Description = desc
		} else {
			log.Warn().Str("instance", inst.Name).Err(err).Msg("cannot describe instance")
		}
		if logs, err := c.rollouts.InstanceLogs(ctx, req.Namespace, inst.Name, true); err == nil {
			diag.Logs = logs
		} else {
			log.Warn().Str("instance", inst.Name).Err(err).Msg("cannot fetch instance logs")
		}
		diagnostics = append(diagnostics, diag)
	}
	return diagnostics
}
