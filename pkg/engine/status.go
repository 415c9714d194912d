package engine

import "fmt"

// DeploymentStatus represents the platform-reported state of a blue/green
// deployment. Status is owned by the platform; this engine only reads it
// and requests transitions.
type DeploymentStatus string

const (
	// StatusCreated indicates the deployment has been accepted but not
	// started.
	StatusCreated DeploymentStatus = "Created"

	// StatusInProgress indicates the deployment is rolling out.
	StatusInProgress DeploymentStatus = "InProgress"

	// StatusSucceeded indicates the deployment completed and traffic has
	// shifted to the new revision.
	StatusSucceeded DeploymentStatus = "Succeeded"

	// StatusFailed indicates the deployment failed.
	StatusFailed DeploymentStatus = "Failed"

	// StatusStopped indicates the deployment was stopped before
	// completion.
	StatusStopped DeploymentStatus = "Stopped"
)

// IsTerminal returns true if no further automatic transition occurs from
// this status.
func (s DeploymentStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusStopped
}

// Validate checks if the deployment status is valid.
func (s DeploymentStatus) Validate() error {
	switch s {
	case StatusCreated, StatusInProgress, StatusSucceeded, StatusFailed, StatusStopped:
		return nil
	default:
		return fmt.Errorf("invalid deployment status: %s", s)
	}
}

// RollbackMode selects how a failed or in-doubt blue/green deployment is
// rolled back. The mode is chosen by the caller based on environment
// policy; this engine only validates and dispatches.
type RollbackMode string

const (
	// RollbackStopOnly stops the deployment without requesting the
	// platform's automatic rollback. Best-effort.
	RollbackStopOnly RollbackMode = "stopOnly"

	// RollbackStopAndAuto stops the deployment and requests the
	// platform's automatic rollback. Best-effort.
	RollbackStopAndAuto RollbackMode = "stopAndAutoRollback"

	// RollbackAutoOnly requests the platform's automatic rollback via a
	// stop with auto-rollback enabled. Best-effort.
	RollbackAutoOnly RollbackMode = "autoRollbackOnly"

	// RollbackManualRedeploy stops with auto-rollback enabled and then
	// directly redeploys a caller-supplied previous known-good workload
	// specification, waiting for the runtime to stabilize. Failures on
	// this path are fatal.
	RollbackManualRedeploy RollbackMode = "manualRedeploy"
)

// Validate checks if the rollback mode is a known value.
func (m RollbackMode) Validate() error {
	switch m {
	case RollbackStopOnly, RollbackStopAndAuto, RollbackAutoOnly, RollbackManualRedeploy:
		return nil
	default:
		return NewUnsupportedModeError(string(m))
	}
}

// BestEffort returns true when failures of the rollback action itself are
// swallowed rather than propagated, so the rollback cannot mask the
// original deployment failure.
func (m RollbackMode) BestEffort() bool {
	return m == RollbackStopOnly || m == RollbackStopAndAuto || m == RollbackAutoOnly
}

// KubeRollbackMode selects the rollback flow on the rolling-deployment
// platform.
type KubeRollbackMode string

const (
	// KubeRollbackHelm rolls a Helm release back, auto-detecting the
	// target revision from release history when none is given.
	KubeRollbackHelm KubeRollbackMode = "helmRollback"

	// KubeRollbackKubectl undoes a workload rollout; without an explicit
	// revision the platform's own one-step-back semantics apply.
	KubeRollbackKubectl KubeRollbackMode = "kubectlUndo"
)

// Validate checks if the kube rollback mode is a known value.
func (m KubeRollbackMode) Validate() error {
	switch m {
	case KubeRollbackHelm, KubeRollbackKubectl:
		return nil
	default:
		return NewUnsupportedModeError(string(m))
	}
}

// RevisionTransport selects how a revision reaches the deployment
// platform.
type RevisionTransport string

const (
	// TransportAuto picks reference-based when an object store location
	// is configured, inline otherwise.
	TransportAuto RevisionTransport = "auto"

	// TransportReference uploads the revision bundle to an object store
	// and submits the store coordinates.
	TransportReference RevisionTransport = "reference"

	// TransportInline submits the manifest content directly with a
	// content digest for integrity.
	TransportInline RevisionTransport = "inline"
)

// Validate checks if the revision transport is a known value. The zero
// value is accepted and treated as TransportAuto.
func (t RevisionTransport) Validate() error {
	switch t {
	case "", TransportAuto, TransportReference, TransportInline:
		return nil
	default:
		return fmt.Errorf("invalid revision transport: %s", t)
	}
}
