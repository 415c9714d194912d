package codedeploy

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

// ECSClient implements engine.WorkloadService against the ECS control
// plane. It backs the manual redeploy rollback path: point a service at a
// previous task definition and wait for it to stabilize.
type ECSClient struct {
	runner   engine.CommandRunner
	region   string
	extraEnv []string
}

// NewECSClient creates an ECS workload client for the given region.
func NewECSClient(runner engine.CommandRunner, region string) *ECSClient {
	return &ECSClient{runner: runner, region: region}
}

// WithEnv returns a copy of the client that appends env to every command.
func (c *ECSClient) WithEnv(env []string) *ECSClient {
	clone := *c
	clone.extraEnv = env
	return &clone
}

// UpdateWorkload redeploys the service from the given task definition.
// The identifier is used as supplied; callers own its validity.
func (c *ECSClient) UpdateWorkload(ctx context.Context, cluster, service, specRef string) error {
	log.Info().
		Str("cluster", cluster).
		Str("service", service).
		Str("task_definition", specRef).
		Msg("updating service")

	_, err := c.run(ctx, []string{
		"ecs", "update-service",
		"--cluster", cluster,
		"--service", service,
		"--task-definition", specRef,
		"--force-new-deployment",
	})
	return err
}

// WaitStable blocks until the service reaches a steady state, using the
// platform's own stability waiter.
func (c *ECSClient) WaitStable(ctx context.Context, cluster, service string) error {
	_, err := c.run(ctx, []string{
		"ecs", "wait", "services-stable",
		"--cluster", cluster,
		"--services", service,
	})
	return err
}

func (c *ECSClient) run(ctx context.Context, args []string) (engine.CommandResult, error) {
	if c.region != "" {
		args = append(args, "--region", c.region)
	}
	return c.runner.RunOrFail(ctx, engine.Command{
		Name: "aws",
		Args: args,
		Env:  c.extraEnv,
	})
}
