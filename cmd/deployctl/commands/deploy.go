package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/platforms/codedeploy"
	"github.com/mvvbapiraju/deployctl/pkg/stores"
	"github.com/mvvbapiraju/deployctl/pkg/telemetry"
)

func newDeployCommand() *cobra.Command {
	var (
		application string
		group       string
		image       string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Submit a blue/green deployment and wait for a terminal state",
		Long: `Submit a blue/green deployment and poll until it reaches a
terminal state.

The revision is built from the configured manifests: the task
definition gets the new image injected, then the pair is either zipped
and uploaded to the object store (reference transport) or submitted
inline with a content digest. The command exits non-zero when the
deployment ends in any state other than Succeeded.`,
		Example: `  # Deploy using the config file's deploy section
  deployctl deploy

  # Override the image being promoted
  deployctl deploy --image registry.example.com/orders:1.4.2

  # Shorter terminal-state bound
  deployctl deploy --timeout 10m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.cfg.Deploy == nil {
				return engine.NewValidationError("config has no deploy section")
			}

			req := a.cfg.Deploy.DeploymentRequest()
			if application != "" {
				req.Application = application
			}
			if group != "" {
				req.Group = group
			}
			if image != "" {
				req.Image = image
			}
			if timeout > 0 {
				req.Timeout = timeout
			}

			return runDeploy(ctx, a, req)
		},
	}

	cmd.Flags().StringVar(&application, "application", "", "override the configured application")
	cmd.Flags().StringVar(&group, "group", "", "override the configured deployment group")
	cmd.Flags().StringVar(&image, "image", "", "container image to promote")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "bound on the wait for a terminal state")

	return cmd
}

func runDeploy(ctx context.Context, a *app, req engine.DeploymentRequest) error {
	dc := a.cfg.Deploy
	target := fmt.Sprintf("%s/%s", req.Application, req.Group)

	ctx, span := a.tracer.StartDeploymentSpan(ctx, req.Application, req.Group)
	defer span.End()

	start := time.Now()
	a.metrics.DeploymentStarted(req.Application, req.Group)

	var record engine.DeploymentRecord
	scoper := codedeploy.NewSTSScoper(a.runner)
	deployErr := scoper.WithScopedCredentials(ctx, dc.Region, dc.RoleARN, func(env []string) error {
		client := codedeploy.NewClient(a.runner, dc.Region).WithEnv(env)
		store := a.objectStore(codedeploy.NewS3Store(a.runner, dc.Region).WithEnv(env))

		var err error
		record, err = engine.NewDriver(client, store).Deploy(ctx, req)
		return err
	})

	a.metrics.DeploymentFinished(string(record.Status), time.Since(start))
	if deployErr != nil {
		telemetry.RecordError(span, deployErr)
		if engine.IsTimeout(deployErr) {
			a.metrics.WaitTimeout("deployment terminal")
		}
	}

	if record.ID != "" {
		a.emitter.Emit(telemetry.EventTypeDeploymentSubmitted, record.ID, target,
			fmt.Sprintf("deployment %s submitted", record.ID), telemetry.EventLevelInfo)
	}
	switch {
	case deployErr == nil:
		a.emitter.Emit(telemetry.EventTypeDeploymentSucceeded, record.ID, target,
			fmt.Sprintf("deployment %s succeeded", record.ID), telemetry.EventLevelInfo)
	case record.ID != "":
		a.emitter.Emit(telemetry.EventTypeDeploymentFailed, record.ID, target,
			deployErr.Error(), telemetry.EventLevelError)
	}

	recordDeploymentRun(ctx, a, req, record, start, deployErr)

	if deployErr != nil {
		return deployErr
	}
	return printResult(record, func() {
		fmt.Printf("Deployment %s succeeded (%s)\n", record.ID, target)
	})
}

// recordDeploymentRun persists the run outcome; history failures are
// logged, never fatal.
func recordDeploymentRun(ctx context.Context, a *app, req engine.DeploymentRequest, record engine.DeploymentRecord, start time.Time, deployErr error) {
	if a.store == nil {
		return
	}

	run := &stores.DeploymentRun{
		ID:           uuid.New().String(),
		DeploymentID: record.ID,
		Application:  req.Application,
		Group:        req.Group,
		Image:        req.Image,
		Transport:    string(req.Transport),
		Status:       string(record.Status),
		StartedAt:    start,
	}
	now := time.Now()
	run.FinishedAt = &now
	if deployErr != nil {
		msg := deployErr.Error()
		run.Error = &msg
		if run.Status == "" {
			run.Status = string(engine.StatusFailed)
		}
	}

	if err := a.store.CreateDeploymentRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("failed to record deployment run")
	}
}

// printResult renders v as JSON when --json is set, otherwise calls the
// plain-text printer.
func printResult(v any, plain func()) error {
	if !jsonOutput {
		plain()
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
