package stores

import "time"

// DeploymentRun is one recorded deployment invocation: what was
// submitted, where it ended up, and when. The platform owns deployment
// state; this record is the pipeline-side audit trail.
type DeploymentRun struct {
	// ID is the run identifier, assigned locally.
	ID string `json:"id"`

	// DeploymentID is the platform-assigned deployment identifier.
	DeploymentID string `json:"deployment_id"`

	// Application and Group identify the deployment target.
	Application string `json:"application"`
	Group       string `json:"group"`

	// Image is the container image that was promoted, if any.
	Image string `json:"image,omitempty"`

	// Transport is the revision transport that was used.
	Transport string `json:"transport"`

	// Status is the terminal (or last observed) deployment status.
	Status string `json:"status"`

	// Error is the failure message, if the deployment did not succeed.
	Error *string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RollbackAction is one recorded rollback invocation.
type RollbackAction struct {
	// ID is the action identifier, assigned locally.
	ID string `json:"id"`

	// DeploymentID is the deployment that was rolled back. For the
	// rolling platform this holds the release or workload name instead.
	DeploymentID string `json:"deployment_id"`

	// Mode is the rollback mode that was executed.
	Mode string `json:"mode"`

	// StatusBefore and StatusAfter are the observed platform states
	// around the action.
	StatusBefore string `json:"status_before,omitempty"`
	StatusAfter  string `json:"status_after,omitempty"`

	// StopError is the text of a swallowed best-effort stop failure.
	StopError *string `json:"stop_error,omitempty"`

	ExecutedAt time.Time `json:"executed_at"`
}

// HistoryEvent is one persisted timeline event.
type HistoryEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	Target       string    `json:"target,omitempty"`
	Message      string    `json:"message"`
	Level        string    `json:"level"`
	Timestamp    time.Time `json:"timestamp"`
}
