// Package kubernetes drives the rolling-deployment platform through the
// helm and kubectl CLIs. Clients shell out via an engine.CommandRunner;
// cluster access comes from the ambient kubeconfig of the invoking
// pipeline runner.
package kubernetes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/revision"
)

// HelmClient implements engine.ReleaseService through the helm CLI.
type HelmClient struct {
	runner engine.CommandRunner

	// kubeContext selects a kubeconfig context; empty means the current
	// one.
	kubeContext string
}

// NewHelmClient creates a helm release client.
func NewHelmClient(runner engine.CommandRunner, kubeContext string) *HelmClient {
	return &HelmClient{runner: runner, kubeContext: kubeContext}
}

// helmHistoryEntry is one row of helm history -o json.
type helmHistoryEntry struct {
	Revision    int    `json:"revision"`
	Updated     string `json:"updated"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// History returns the release's revision history, freshly fetched so a
// rollback decision never works from stale data.
func (c *HelmClient) History(ctx context.Context, release, namespace string) ([]revision.Entry, error) {
	result, err := c.run(ctx, []string{
		"history", release,
		"--namespace", namespace,
		"-o", "json",
	})
	if err != nil {
		return nil, err
	}

	var rows []helmHistoryEntry
	if err := json.Unmarshal([]byte(result.Stdout), &rows); err != nil {
		return nil, engine.NewInternalError("parsing helm history output", err)
	}

	entries := make([]revision.Entry, 0, len(rows))
	for _, row := range rows {
		entry := revision.Entry{
			Sequence:    row.Revision,
			Status:      mapReleaseStatus(row.Status),
			Description: row.Description,
		}
		if ts, err := parseHelmTime(row.Updated); err == nil {
			entry.Updated = ts
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Rollback rolls the release back to rev and waits for it to report
// healthy, bounded by timeout.
func (c *HelmClient) Rollback(ctx context.Context, release string, rev int, namespace string, timeout time.Duration) error {
	log.Info().
		Str("release", release).
		Int("revision", rev).
		Str("namespace", namespace).
		Msg("rolling back release")

	_, err := c.run(ctx, []string{
		"rollback", release, fmt.Sprintf("%d", rev),
		"--namespace", namespace,
		"--wait",
		"--timeout", timeout.String(),
	})
	return err
}

func (c *HelmClient) run(ctx context.Context, args []string) (engine.CommandResult, error) {
	if c.kubeContext != "" {
		args = append(args, "--kube-context", c.kubeContext)
	}
	return c.runner.RunOrFail(ctx, engine.Command{Name: "helm", Args: args})
}

// mapReleaseStatus maps helm's release status vocabulary onto the
// selector's. The pending-* states are all still rolling out.
func mapReleaseStatus(status string) revision.Status {
	switch strings.ToLower(status) {
	case "deployed":
		return revision.StatusDeployed
	case "superseded":
		return revision.StatusSuperseded
	case "failed":
		return revision.StatusFailed
	case "pending-install", "pending-upgrade", "pending-rollback":
		return revision.StatusPending
	default:
		return revision.StatusUnknown
	}
}

// parseHelmTime parses the timestamps helm emits, which vary between
// RFC3339 and a legacy layout across versions.
func parseHelmTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Parse("Mon Jan  2 15:04:05 2006", value)
}
