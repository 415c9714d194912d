package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/retry"
)

// RollbackRequest describes one rollback of a blue/green deployment.
type RollbackRequest struct {
	// DeploymentID is the deployment to act on.
	DeploymentID string `json:"deployment_id"`

	// Mode selects the rollback flow.
	Mode RollbackMode `json:"mode"`

	// Cluster, Service, and SpecRef drive the manual redeploy path:
	// point the workload runtime at a previous known-good specification.
	// The identifier is trusted as supplied and is not validated against
	// history.
	Cluster string `json:"cluster,omitempty"`
	Service string `json:"service,omitempty"`
	SpecRef string `json:"spec_ref,omitempty"`

	// SettlePolicy bounds the post-action wait for the platform to reach
	// a terminal state. Zero value takes the retry defaults.
	SettlePolicy retry.Policy `json:"settle_policy,omitempty"`
}

// Validate fails fast on caller mistakes, before any external call.
func (r *RollbackRequest) Validate() error {
	if r.DeploymentID == "" {
		return NewValidationError("deployment id is required")
	}
	if err := r.Mode.Validate(); err != nil {
		return err
	}
	if r.Mode == RollbackManualRedeploy {
		if r.Cluster == "" || r.Service == "" || r.SpecRef == "" {
			return NewValidationError("manual redeploy requires cluster, service and spec ref")
		}
	}
	return nil
}

// Coordinator rolls back blue/green deployments. Stop-based modes are
// best-effort: a failed stop request is recorded in the summary, never
// propagated, so rollback cannot mask the original deployment failure.
// The manual redeploy path has no fallback and is fatal on error.
type Coordinator struct {
	deployments DeploymentService
	workloads   WorkloadService
}

// NewCoordinator creates a rollback coordinator. workloads may be nil
// when the manual redeploy mode is not used.
func NewCoordinator(deployments DeploymentService, workloads WorkloadService) *Coordinator {
	return &Coordinator{
		deployments: deployments,
		workloads:   workloads,
	}
}

// Rollback dispatches the request and reports a final summary. It
// returns normally even when the deployment's final state is not
// Succeeded; the caller decides whether that is acceptable.
func (c *Coordinator) Rollback(ctx context.Context, req RollbackRequest) (RollbackSummary, error) {
	if err := req.Validate(); err != nil {
		return RollbackSummary{}, err
	}

	summary := RollbackSummary{
		DeploymentID: req.DeploymentID,
		Mode:         req.Mode,
	}

	// The before snapshot is diagnostic only. A failed read must not
	// abort the rollback before the stop request is attempted.
	before, err := c.deployments.GetDeployment(ctx, req.DeploymentID)
	if err != nil {
		log.Warn().
			Str("deployment_id", req.DeploymentID).
			Err(err).
			Msg("could not read deployment state before rollback")
	} else {
		summary.Before = before
		logSnapshot("rollback starting", before)
	}

	switch req.Mode {
	case RollbackStopOnly:
		summary.StopError = c.bestEffortStop(ctx, req.DeploymentID, false)
	case RollbackStopAndAuto, RollbackAutoOnly:
		summary.StopError = c.bestEffortStop(ctx, req.DeploymentID, true)
	case RollbackManualRedeploy:
		summary.StopError = c.bestEffortStop(ctx, req.DeploymentID, true)
		if err := c.manualRedeploy(ctx, req); err != nil {
			return summary, err
		}
		summary.Redeployed = true
	default:
		return summary, NewUnsupportedModeError(string(req.Mode))
	}

	after := c.awaitSettled(ctx, req)
	summary.After = after
	logSnapshot("rollback finished", after)

	return summary, nil
}

// bestEffortStop requests a platform stop and swallows any failure,
// returning its text for the summary.
func (c *Coordinator) bestEffortStop(ctx context.Context, id string, autoRollback bool) string {
	err := c.deployments.StopDeployment(ctx, id, autoRollback)
	if err == nil {
		return ""
	}
	log.Warn().
		Str("deployment_id", id).
		Bool("auto_rollback", autoRollback).
		Err(err).
		Msg("stop request failed, continuing")
	return err.Error()
}

// manualRedeploy points the workload runtime at the supplied previous
// known-good specification and blocks until steady state.
func (c *Coordinator) manualRedeploy(ctx context.Context, req RollbackRequest) error {
	if c.workloads == nil {
		return NewValidationError("manual redeploy requires a workload service")
	}

	log.Info().
		Str("cluster", req.Cluster).
		Str("service", req.Service).
		Str("spec_ref", req.SpecRef).
		Msg("redeploying previous known-good specification")

	if err := c.workloads.UpdateWorkload(ctx, req.Cluster, req.Service, req.SpecRef); err != nil {
		return err
	}
	return c.workloads.WaitStable(ctx, req.Cluster, req.Service)
}

// awaitSettled waits briefly for the platform to reach a terminal state
// after the action. A deployment still in flight when retries are
// exhausted is reported as observed; settle failures are logged, not
// fatal.
func (c *Coordinator) awaitSettled(ctx context.Context, req RollbackRequest) DeploymentRecord {
	policy := req.SettlePolicy
	if policy.MaxAttempts <= 0 {
		policy = retry.DefaultPolicy()
	}

	var record DeploymentRecord
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		current, err := c.deployments.GetDeployment(ctx, req.DeploymentID)
		if err != nil {
			return err
		}
		record = current
		if !current.Status.IsTerminal() {
			return fmt.Errorf("deployment %s still %s", req.DeploymentID, current.Status)
		}
		return nil
	})
	if err != nil {
		log.Warn().
			Str("deployment_id", req.DeploymentID).
			Str("status", string(record.Status)).
			Err(err).
			Msg("deployment did not settle, reporting last observed state")
	}
	return record
}

func logSnapshot(msg string, record DeploymentRecord) {
	log.Info().
		Str("deployment_id", record.ID).
		Str("status", string(record.Status)).
		Str("creator", record.Creator).
		Str("error_message", record.ErrorMessage).
		Msg(msg)
}
