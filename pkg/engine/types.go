package engine

import (
	"time"

	"github.com/mvvbapiraju/deployctl/pkg/health"
)

// DeploymentRecord is the engine's read-only view of a platform-owned
// deployment. It is created by submission, mutates only through
// platform-observed status, and is discarded once terminal.
type DeploymentRecord struct {
	// ID is the opaque identifier assigned by the platform.
	ID string `json:"id"`

	// Status is the platform-reported deployment status.
	Status DeploymentStatus `json:"status"`

	// ErrorMessage is the platform-reported failure reason, if any.
	ErrorMessage string `json:"error_message,omitempty"`

	// Creator identifies who or what triggered the deployment.
	Creator string `json:"creator,omitempty"`

	// CreatedAt is when the platform accepted the deployment.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// StoreLocation addresses a revision bundle in the object store.
type StoreLocation struct {
	// Bucket is the store bucket name.
	Bucket string `json:"bucket"`

	// Key is the object key of the uploaded bundle.
	Key string `json:"key"`
}

// Revision is a packaged deployment artifact ready for submission, in one
// of the two transport forms.
type Revision struct {
	// Transport is the form this revision takes: reference or inline.
	Transport RevisionTransport `json:"transport"`

	// Store holds the bundle coordinates for reference-based submission.
	Store *StoreLocation `json:"store,omitempty"`

	// Content is the manifest content for inline submission.
	Content string `json:"content,omitempty"`

	// SHA256 is the content digest guarding inline submission integrity.
	SHA256 string `json:"sha256,omitempty"`
}

// RollbackSummary reports what a blue/green rollback did and where the
// deployment ended up. The coordinator never hides failure: After carries
// the final platform state even when it is not Succeeded.
type RollbackSummary struct {
	// DeploymentID is the deployment that was rolled back.
	DeploymentID string `json:"deployment_id"`

	// Mode is the rollback mode that was executed.
	Mode RollbackMode `json:"mode"`

	// Before is the deployment state observed before the action.
	Before DeploymentRecord `json:"before"`

	// After is the deployment state observed after the action settled.
	After DeploymentRecord `json:"after"`

	// StopError is the text of a swallowed stop failure, when the mode is
	// best-effort and the stop request failed.
	StopError string `json:"stop_error,omitempty"`

	// Redeployed is true when a manual redeploy was issued and the
	// runtime reported steady state.
	Redeployed bool `json:"redeployed,omitempty"`
}

// KubeRollback describes one rollback request against the
// rolling-deployment platform.
type KubeRollback struct {
	// Mode selects the rollback flow.
	Mode KubeRollbackMode `json:"mode"`

	// Release is the Helm release name (helmRollback mode).
	Release string `json:"release,omitempty"`

	// Kind and Name identify the workload (kubectlUndo mode), e.g.
	// "deployment" and "payments-api".
	Kind string `json:"kind,omitempty"`
	Name string `json:"name,omitempty"`

	// Namespace scopes both modes.
	Namespace string `json:"namespace"`

	// Revision is the explicit rollback target. Zero means auto-detect
	// from history (helm) or one step back (kubectl).
	Revision int `json:"revision,omitempty"`

	// Selector is the label selector used to list instances for
	// diagnostics, e.g. "app=payments-api".
	Selector string `json:"selector,omitempty"`

	// MaxDiagnostics caps how many unhealthy instances are described in
	// detail. Zero means DefaultMaxDiagnostics.
	MaxDiagnostics int `json:"max_diagnostics,omitempty"`

	// StabilizeTimeout bounds the post-rollback wait for the workload to
	// report stable. Zero means DefaultStabilizeTimeout.
	StabilizeTimeout time.Duration `json:"stabilize_timeout,omitempty"`
}

// InstanceDiagnostic is the captured detail for one unhealthy instance.
type InstanceDiagnostic struct {
	// Instance is the classified instance.
	Instance health.Instance `json:"instance"`

	// Description is the platform's detailed description output.
	Description string `json:"description,omitempty"`

	// Logs is the instance's recent (previous-container) log tail.
	Logs string `json:"logs,omitempty"`
}

// KubeRollbackSummary reports what a kube rollback did, including the
// diagnostic snapshots taken before and after the action.
type KubeRollbackSummary struct {
	// Mode is the rollback mode that was executed.
	Mode KubeRollbackMode `json:"mode"`

	// Target names the release (helm) or kind/name (kubectl) acted on.
	Target string `json:"target"`

	// Revision is the revision rolled back to; zero when the platform's
	// own one-step-back semantics were used.
	Revision int `json:"revision,omitempty"`

	// Stable is true when the workload reported stable within the bound.
	Stable bool `json:"stable"`

	// UnhealthyBefore and UnhealthyAfter are the diagnostic captures
	// around the rollback action. Observational only.
	UnhealthyBefore []InstanceDiagnostic `json:"unhealthy_before,omitempty"`
	UnhealthyAfter  []InstanceDiagnostic `json:"unhealthy_after,omitempty"`
}

// Defaults for caller-overridable bounds.
const (
	// DefaultDeployTimeout bounds the poll for a terminal deployment
	// state.
	DefaultDeployTimeout = 30 * time.Minute

	// DefaultPollInterval is the spacing between deployment status
	// checks.
	DefaultPollInterval = 20 * time.Second

	// DefaultStabilizeTimeout bounds the post-rollback stabilization
	// wait on the rolling-deployment platform.
	DefaultStabilizeTimeout = 5 * time.Minute

	// DefaultMaxDiagnostics caps diagnostic capture volume per snapshot.
	DefaultMaxDiagnostics = 5
)
