package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/platforms/codedeploy"
	"github.com/mvvbapiraju/deployctl/pkg/stores"
	"github.com/mvvbapiraju/deployctl/pkg/telemetry"
)

func newRollbackCommand() *cobra.Command {
	var (
		deploymentID string
		mode         string
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back a blue/green deployment",
		Long: `Roll back a blue/green deployment.

Modes:
  stopOnly             stop the deployment, keep whatever is serving
  stopAndAutoRollback  stop and let the platform redeploy the previous
                       revision
  autoRollbackOnly     rely on the platform's automatic rollback alone
  manualRedeploy       stop, then redeploy the workload from an explicit
                       known-good specification and wait for steady state

Stop-based modes are best-effort: a failed stop request is recorded in
the summary but never masks the deployment's own outcome. The manual
redeploy path is fatal on error.`,
		Example: `  # Roll back using the config file's rollback section
  deployctl rollback

  # Roll back a specific deployment
  deployctl rollback --deployment-id d-ABCD1234 --mode stopAndAutoRollback

  # Manual redeploy from a known-good task definition
  deployctl rollback --mode manualRedeploy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.cfg.Rollback == nil {
				return engine.NewValidationError("config has no rollback section")
			}

			req := a.cfg.Rollback.RollbackRequest()
			if deploymentID != "" {
				req.DeploymentID = deploymentID
			}
			if mode != "" {
				req.Mode = engine.RollbackMode(mode)
			}

			return runRollback(ctx, a, req)
		},
	}

	cmd.Flags().StringVar(&deploymentID, "deployment-id", "", "override the configured deployment id")
	cmd.Flags().StringVar(&mode, "mode", "", "override the configured rollback mode")

	return cmd
}

func runRollback(ctx context.Context, a *app, req engine.RollbackRequest) error {
	rc := a.cfg.Rollback

	ctx, span := a.tracer.StartRollbackSpan(ctx, req.DeploymentID, string(req.Mode))
	defer span.End()

	a.emitter.Emit(telemetry.EventTypeRollbackStarted, req.DeploymentID, "",
		fmt.Sprintf("rollback started in mode %s", req.Mode), telemetry.EventLevelInfo)

	var summary engine.RollbackSummary
	scoper := codedeploy.NewSTSScoper(a.runner)
	rbErr := scoper.WithScopedCredentials(ctx, rc.Region, rc.RoleARN, func(env []string) error {
		client := codedeploy.NewClient(a.runner, rc.Region).WithEnv(env)
		ecs := codedeploy.NewECSClient(a.runner, rc.Region).WithEnv(env)

		var err error
		summary, err = engine.NewCoordinator(client, ecs).Rollback(ctx, req)
		return err
	})

	outcome := "success"
	if rbErr != nil {
		outcome = "failure"
		telemetry.RecordError(span, rbErr)
	}
	a.metrics.RollbackExecuted(string(req.Mode), outcome)

	if summary.StopError != "" {
		a.metrics.StopErrorSwallowed()
		a.emitter.Emit(telemetry.EventTypeStopSwallowed, req.DeploymentID, "",
			summary.StopError, telemetry.EventLevelWarning)
	}
	if summary.Redeployed {
		a.emitter.Emit(telemetry.EventTypeRedeployIssued, req.DeploymentID, "",
			fmt.Sprintf("workload %s/%s redeployed from %s", req.Cluster, req.Service, req.SpecRef),
			telemetry.EventLevelInfo)
	}
	if rbErr == nil {
		a.emitter.Emit(telemetry.EventTypeRollbackFinished, req.DeploymentID, "",
			fmt.Sprintf("rollback finished, deployment is %s", summary.After.Status),
			telemetry.EventLevelInfo)
	} else {
		a.emitter.Emit(telemetry.EventTypeError, req.DeploymentID, "",
			rbErr.Error(), telemetry.EventLevelError)
	}

	recordRollbackAction(ctx, a, summary)

	if rbErr != nil {
		return rbErr
	}
	return printResult(summary, func() {
		fmt.Printf("Rollback of %s finished (mode %s): %s -> %s\n",
			summary.DeploymentID, summary.Mode, summary.Before.Status, summary.After.Status)
		if summary.StopError != "" {
			fmt.Printf("Stop request failed (continued): %s\n", summary.StopError)
		}
	})
}

func recordRollbackAction(ctx context.Context, a *app, summary engine.RollbackSummary) {
	if a.store == nil || summary.DeploymentID == "" {
		return
	}

	action := &stores.RollbackAction{
		ID:           uuid.New().String(),
		DeploymentID: summary.DeploymentID,
		Mode:         string(summary.Mode),
		StatusBefore: string(summary.Before.Status),
		StatusAfter:  string(summary.After.Status),
		ExecutedAt:   time.Now(),
	}
	if summary.StopError != "" {
		stopErr := summary.StopError
		action.StopError = &stopErr
	}

	if err := a.store.CreateRollbackAction(ctx, action); err != nil {
		log.Warn().Err(err).Msg("failed to record rollback action")
	}
}
