package kubernetes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/health"
)

// KubectlClient implements engine.RolloutService through the kubectl CLI.
type KubectlClient struct {
	runner      engine.CommandRunner
	kubeContext string
}

// NewKubectlClient creates a workload rollout client.
func NewKubectlClient(runner engine.CommandRunner, kubeContext string) *KubectlClient {
	return &KubectlClient{runner: runner, kubeContext: kubeContext}
}

// UndoRollout reverts a workload rollout. A toRevision of zero delegates
// "one step back" to the platform.
func (c *KubectlClient) UndoRollout(ctx context.Context, kind, name, namespace string, toRevision int) error {
	args := []string{
		"rollout", "undo", fmt.Sprintf("%s/%s", kind, name),
		"--namespace", namespace,
	}
	if toRevision > 0 {
		args = append(args, fmt.Sprintf("--to-revision=%d", toRevision))
	}

	log.Info().
		Str("workload", kind+"/"+name).
		Str("namespace", namespace).
		Int("to_revision", toRevision).
		Msg("undoing rollout")

	_, err := c.run(ctx, args)
	return err
}

// RolloutStatus blocks until the rollout reports complete, bounded by
// timeout.
func (c *KubectlClient) RolloutStatus(ctx context.Context, kind, name, namespace string, timeout time.Duration) error {
	_, err := c.run(ctx, []string{
		"rollout", "status", fmt.Sprintf("%s/%s", kind, name),
		"--namespace", namespace,
		"--timeout", timeout.String(),
	})
	return err
}

// podList is the subset of kubectl get pods -o json the classifier needs.
type podList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Status struct {
			Phase      string `json:"phase"`
			Conditions []struct {
				Type   string `json:"type"`
				Status string `json:"status"`
			} `json:"conditions"`
		} `json:"status"`
	} `json:"items"`
}

// ListInstances lists pods matching the selector, mapped for the health
// classifier. Readiness derives from the Ready condition; a pod without
// one is not ready.
func (c *KubectlClient) ListInstances(ctx context.Context, namespace, selector string) ([]health.Instance, error) {
	result, err := c.run(ctx, []string{
		"get", "pods",
		"--namespace", namespace,
		"--selector", selector,
		"-o", "json",
	})
	if err != nil {
		return nil, err
	}

	var pods podList
	if err := json.Unmarshal([]byte(result.Stdout), &pods); err != nil {
		return nil, engine.NewInternalError("parsing pod list output", err)
	}

	instances := make([]health.Instance, 0, len(pods.Items))
	for _, pod := range pods.Items {
		inst := health.Instance{
			Name:  pod.Metadata.Name,
			Phase: health.Phase(pod.Status.Phase),
		}
		for _, cond := range pod.Status.Conditions {
			if cond.Type == "Ready" && cond.Status == "True" {
				inst.Ready = true
				break
			}
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// DescribeInstance returns the platform's detailed pod description.
func (c *KubectlClient) DescribeInstance(ctx context.Context, namespace, name string) (string, error) {
	result, err := c.run(ctx, []string{
		"describe", "pod", name,
		"--namespace", namespace,
	})
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// InstanceLogs returns a pod's log tail; previous selects the prior
// container incarnation, which is usually the one that crashed.
func (c *KubectlClient) InstanceLogs(ctx context.Context, namespace, name string, previous bool) (string, error) {
	args := []string{
		"logs", name,
		"--namespace", namespace,
		"--tail", "100",
	}
	if previous {
		args = append(args, "--previous")
	}

	result, err := c.run(ctx, args)
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

func (c *KubectlClient) run(ctx context.Context, args []string) (engine.CommandResult, error) {
	if c.kubeContext != "" {
		args = append(args, "--context", c.kubeContext)
	}
	return c.runner.RunOrFail(ctx, engine.Command{Name: "kubectl", Args: args})
}
