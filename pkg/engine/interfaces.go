package engine

import (
	"context"
	"time"

	"github.com/mvvbapiraju/deployctl/pkg/health"
	"github.com/mvvbapiraju/deployctl/pkg/revision"
)

// Command is one external command to execute, with optional extra
// environment (appended to the ambient environment) and working
// directory.
type Command struct {
	// Name is the executable to run.
	Name string `json:"name"`

	// Args are the command arguments.
	Args []string `json:"args,omitempty"`

	// Env is extra environment in KEY=value form, e.g. scoped
	// credentials.
	Env []string `json:"-"`

	// Dir is the working directory; empty means the process default.
	Dir string `json:"dir,omitempty"`
}

// CommandResult is the captured outcome of an executed command.
type CommandResult struct {
	// Stdout is the captured standard output, trimmed.
	Stdout string `json:"stdout"`

	// Stderr is the captured standard error, trimmed.
	Stderr string `json:"stderr"`

	// ExitCode is the command's exit code; zero on success.
	ExitCode int `json:"exit_code"`

	// Duration is how long the command ran.
	Duration time.Duration `json:"duration"`
}

// CommandRunner executes external commands. Run reports a non-zero exit
// through the result rather than an error; the error return is reserved
// for launch and transport failures. RunOrFail additionally converts a
// non-zero exit into a classified command error carrying the command text
// and exit code.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (CommandResult, error)
	RunOrFail(ctx context.Context, cmd Command) (CommandResult, error)
}

// DeploymentService is the blue/green deployment platform boundary:
// submit a revision, observe status, request stop with or without the
// platform's automatic rollback.
type DeploymentService interface {
	// CreateDeployment submits a revision for the application and
	// deployment group and returns the platform-assigned deployment ID.
	CreateDeployment(ctx context.Context, application, group string, rev Revision) (string, error)

	// GetDeployment fetches the current state of a deployment.
	GetDeployment(ctx context.Context, id string) (DeploymentRecord, error)

	// StopDeployment requests the platform stop a deployment, optionally
	// rolling back to the previous revision automatically.
	StopDeployment(ctx context.Context, id string, autoRollback bool) error

	// ListTargets lists the instance targets of a deployment.
	ListTargets(ctx context.Context, id string) ([]string, error)

	// TargetEvents fetches the lifecycle-event detail for one target.
	TargetEvents(ctx context.Context, id, targetID string) (string, error)
}

// WorkloadService is the workload runtime boundary used by the manual
// redeploy path: point the service at a previous known-good specification
// and wait for steady state.
type WorkloadService interface {
	// UpdateWorkload redeploys the service from the given workload
	// specification identifier.
	UpdateWorkload(ctx context.Context, cluster, service, specRef string) error

	// WaitStable blocks until the runtime reports the service steady.
	WaitStable(ctx context.Context, cluster, service string) error
}

// ObjectStore uploads revision bundles for reference-based submission.
type ObjectStore interface {
	Put(ctx context.Context, localPath string, location StoreLocation) error
}

// ReleaseService is the release-managed rollback boundary of the
// rolling-deployment platform.
type ReleaseService interface {
	// History returns the release's revision history.
	History(ctx context.Context, release, namespace string) ([]revision.Entry, error)

	// Rollback rolls the release back to the given revision and waits
	// for the release to report healthy, bounded by timeout.
	Rollback(ctx context.Context, release string, rev int, namespace string, timeout time.Duration) error
}

// RolloutService is the workload-level rollback and diagnostics boundary
// of the rolling-deployment platform.
type RolloutService interface {
	// UndoRollout reverts a workload rollout. A toRevision of zero means
	// one step back.
	UndoRollout(ctx context.Context, kind, name, namespace string, toRevision int) error

	// RolloutStatus blocks until the rollout reports complete, bounded
	// by timeout.
	RolloutStatus(ctx context.Context, kind, name, namespace string, timeout time.Duration) error

	// ListInstances lists workload instances matching the selector.
	ListInstances(ctx context.Context, namespace, selector string) ([]health.Instance, error)

	// DescribeInstance returns the platform's detailed description of an
	// instance.
	DescribeInstance(ctx context.Context, namespace, name string) (string, error)

	// InstanceLogs returns an instance's log tail; previous selects the
	// prior container incarnation.
	InstanceLogs(ctx context.Context, namespace, name string, previous bool) (string, error)
}

// CredentialScoper supplies scoped platform credentials for the duration
// of the enclosed operations. An empty role ARN means ambient identity.
// The credentials are passed to fn as KEY=value environment entries and
// are released when fn returns, on every exit path.
type CredentialScoper interface {
	WithScopedCredentials(ctx context.Context, region, roleARN string, fn func(env []string) error) error
}
