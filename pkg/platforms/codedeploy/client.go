// Package codedeploy drives the blue/green deployment platform through
// the aws CLI. All calls shell out through an engine.CommandRunner so the
// same client works over the local and ssh transports, and so tests can
// substitute a fake runner.
package codedeploy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

// Client implements engine.DeploymentService against AWS CodeDeploy.
type Client struct {
	runner engine.CommandRunner

	// region and extraEnv are applied to every invocation. extraEnv
	// carries scoped credentials when a role is assumed.
	region   string
	extraEnv []string
}

// NewClient creates a CodeDeploy client for the given region.
func NewClient(runner engine.CommandRunner, region string) *Client {
	return &Client{runner: runner, region: region}
}

// WithEnv returns a copy of the client that appends env to every command,
// e.g. scoped credentials from a CredentialScoper.
func (c *Client) WithEnv(env []string) *Client {
	clone := *c
	clone.extraEnv = env
	return &clone
}

// createDeploymentOutput is the CLI response shape for create-deployment.
type createDeploymentOutput struct {
	DeploymentID string `json:"deploymentId"`
}

// deploymentInfo is the subset of get-deployment output the engine needs.
type deploymentInfo struct {
	DeploymentInfo struct {
		DeploymentID string `json:"deploymentId"`
		Status       string `json:"status"`
		Creator      string `json:"creator"`
		CreateTime   string `json:"createTime"`
		ErrorInformation struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errorInformation"`
	} `json:"deploymentInfo"`
}

// CreateDeployment submits a revision and returns the platform-assigned
// deployment ID.
func (c *Client) CreateDeployment(ctx context.Context, application, group string, rev engine.Revision) (string, error) {
	args := []string{
		"deploy", "create-deployment",
		"--application-name", application,
		"--deployment-group-name", group,
		"--revision", revisionJSON(rev),
		"--output", "json",
	}

	result, err := c.run(ctx, args)
	if err != nil {
		return "", err
	}

	var out createDeploymentOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return "", engine.NewInternalError("parsing create-deployment output", err)
	}
	if out.DeploymentID == "" {
		return "", engine.NewInternalError("create-deployment returned no deployment id", nil)
	}
	return out.DeploymentID, nil
}

// GetDeployment fetches and maps the platform's view of a deployment.
func (c *Client) GetDeployment(ctx context.Context, id string) (engine.DeploymentRecord, error) {
	result, err := c.run(ctx, []string{
		"deploy", "get-deployment",
		"--deployment-id", id,
		"--output", "json",
	})
	if err != nil {
		return engine.DeploymentRecord{}, err
	}

	var out deploymentInfo
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return engine.DeploymentRecord{}, engine.NewInternalError("parsing get-deployment output", err)
	}

	info := out.DeploymentInfo
	record := engine.DeploymentRecord{
		ID:      info.DeploymentID,
		Status:  mapStatus(info.Status),
		Creator: info.Creator,
	}
	if info.ErrorInformation.Message != "" {
		record.ErrorMessage = fmt.Sprintf("%s: %s", info.ErrorInformation.Code, info.ErrorInformation.Message)
	}
	if info.CreateTime != "" {
		if ts, err := time.Parse(time.RFC3339, info.CreateTime); err == nil {
			record.CreatedAt = ts
		}
	}
	return record, nil
}

// StopDeployment requests a stop, optionally with the platform's
// automatic rollback to the previous revision.
func (c *Client) StopDeployment(ctx context.Context, id string, autoRollback bool) error {
	args := []string{
		"deploy", "stop-deployment",
		"--deployment-id", id,
	}
	if autoRollback {
		args = append(args, "--auto-rollback-enabled")
	} else {
		args = append(args, "--no-auto-rollback-enabled")
	}

	_, err := c.run(ctx, args)
	return err
}

// listTargetsOutput is the CLI response shape for list-deployment-targets.
type listTargetsOutput struct {
	TargetIDs []string `json:"targetIds"`
}

// ListTargets lists the instance targets of a deployment.
func (c *Client) ListTargets(ctx context.Context, id string) ([]string, error) {
	result, err := c.run(ctx, []string{
		"deploy", "list-deployment-targets",
		"--deployment-id", id,
		"--output", "json",
	})
	if err != nil {
		return nil, err
	}

	var out listTargetsOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return nil, engine.NewInternalError("parsing list-deployment-targets output", err)
	}
	return out.TargetIDs, nil
}

// TargetEvents fetches the lifecycle-event detail for one target, raw, for
// diagnostics.
func (c *Client) TargetEvents(ctx context.Context, id, targetID string) (string, error) {
	result, err := c.run(ctx, []string{
		"deploy", "get-deployment-target",
		"--deployment-id", id,
		"--target-id", targetID,
		"--output", "json",
	})
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

func (c *Client) run(ctx context.Context, args []string) (engine.CommandResult, error) {
	if c.region != "" {
		args = append(args, "--region", c.region)
	}
	return c.runner.RunOrFail(ctx, engine.Command{
		Name: "aws",
		Args: args,
		Env:  c.extraEnv,
	})
}

// revisionJSON encodes a revision in the CLI's --revision format.
func revisionJSON(rev engine.Revision) string {
	var payload map[string]any
	switch rev.Transport {
	case engine.TransportReference:
		payload = map[string]any{
			"revisionType": "S3",
			"s3Location": map[string]any{
				"bucket":     rev.Store.Bucket,
				"key":        rev.Store.Key,
				"bundleType": "zip",
			},
		}
	default:
		payload = map[string]any{
			"revisionType": "AppSpecContent",
			"appSpecContent": map[string]any{
				"content": rev.Content,
				"sha256":  rev.SHA256,
			},
		}
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

// mapStatus maps the platform's status vocabulary onto the engine's
// five-state lifecycle. Queued, Baking and Ready are all in flight from
// the engine's point of view.
func mapStatus(status string) engine.DeploymentStatus {
	switch status {
	case "Created":
		return engine.StatusCreated
	case "Queued", "InProgress", "Baking", "Ready":
		return engine.StatusInProgress
	case "Succeeded":
		return engine.StatusSucceeded
	case "Failed":
		return engine.StatusFailed
	case "Stopped":
		return engine.StatusStopped
	default:
		log.Warn().Str("status", status).Msg("unrecognized platform status, treating as in progress")
		return engine.StatusInProgress
	}
}
