package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/platforms/kubernetes"
	"github.com/mvvbapiraju/deployctl/pkg/stores"
	"github.com/mvvbapiraju/deployctl/pkg/telemetry"
)

func newKubeRollbackCommand() *cobra.Command {
	var (
		revision  int
		namespace string
	)

	cmd := &cobra.Command{
		Use:   "kube-rollback",
		Short: "Roll back a rolling deployment on Kubernetes",
		Long: `Roll back a rolling deployment on Kubernetes.

Modes:
  helmRollback  roll a Helm release back to a revision; with no explicit
                revision the target is selected from release history
                (latest deployed revision before the current one)
  kubectlUndo   undo a workload rollout; with no explicit revision the
                platform's one-step-back semantics apply

Unhealthy instances matching the configured selector are described and
their previous-container logs captured before and after the action.`,
		Example: `  # Roll back using the config file's kubernetes section
  deployctl kube-rollback

  # Roll a release back to an explicit revision
  deployctl kube-rollback --revision 12

  # Act in a different namespace
  deployctl kube-rollback --namespace payments-staging`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.cfg.Kubernetes == nil {
				return engine.NewValidationError("config has no kubernetes section")
			}

			req := a.cfg.Kubernetes.KubeRollback()
			if revision > 0 {
				req.Revision = revision
			}
			if namespace != "" {
				req.Namespace = namespace
			}

			return runKubeRollback(ctx, a, req)
		},
	}

	cmd.Flags().IntVar(&revision, "revision", 0, "explicit revision to roll back to")
	cmd.Flags().StringVar(&namespace, "namespace", "", "override the configured namespace")

	return cmd
}

func runKubeRollback(ctx context.Context, a *app, req engine.KubeRollback) error {
	kc := a.cfg.Kubernetes

	target := req.Release
	if req.Mode == engine.KubeRollbackKubectl {
		target = fmt.Sprintf("%s/%s", req.Kind, req.Name)
	}

	ctx, span := a.tracer.StartRollbackSpan(ctx, target, string(req.Mode))
	defer span.End()

	a.emitter.Emit(telemetry.EventTypeRollbackStarted, target, req.Namespace,
		fmt.Sprintf("rollback started in mode %s", req.Mode), telemetry.EventLevelInfo)

	helm := kubernetes.NewHelmClient(a.runner, kc.KubeContext)
	kubectl := kubernetes.NewKubectlClient(a.runner, kc.KubeContext)

	summary, err := engine.NewKubeCoordinator(helm, kubectl).Rollback(ctx, req)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		telemetry.RecordError(span, err)
	}
	a.metrics.RollbackExecuted(string(req.Mode), outcome)

	if err == nil {
		a.emitter.Emit(telemetry.EventTypeStabilized, target, req.Namespace,
			fmt.Sprintf("%s stabilized at revision %d", summary.Target, summary.Revision),
			telemetry.EventLevelInfo)
	} else {
		a.emitter.Emit(telemetry.EventTypeError, target, req.Namespace,
			err.Error(), telemetry.EventLevelError)
	}

	recordKubeRollback(ctx, a, summary, target)

	if err != nil {
		return err
	}
	return printResult(summary, func() {
		fmt.Printf("Rollback of %s finished (mode %s)", summary.Target, summary.Mode)
		if summary.Revision > 0 {
			fmt.Printf(", revision %d", summary.Revision)
		}
		fmt.Println()
		fmt.Printf("Unhealthy instances: %d before, %d after\n",
			len(summary.UnhealthyBefore), len(summary.UnhealthyAfter))
		for _, diag := range summary.UnhealthyAfter {
			fmt.Printf("  still unhealthy: %s (phase %s)\n", diag.Instance.Name, diag.Instance.Phase)
		}
	})
}

func recordKubeRollback(ctx context.Context, a *app, summary engine.KubeRollbackSummary, target string) {
	if a.store == nil || target == "" {
		return
	}

	after := "unstable"
	if summary.Stable {
		after = "stable"
	}
	action := &stores.RollbackAction{
		ID:           uuid.New().String(),
		DeploymentID: target,
		Mode:         string(summary.Mode),
		StatusAfter:  after,
		ExecutedAt:   time.Now(),
	}

	if err := a.store.CreateRollbackAction(ctx, action); err != nil {
		log.Warn().Err(err).Msg("failed to record rollback action")
	}
}
