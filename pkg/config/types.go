package config

import (
	"time"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/retry"
	"github.com/mvvbapiraju/deployctl/pkg/telemetry"
)

// Config is the root configuration for a deployctl invocation. Exactly
// one invocation reads one config; nothing here is shared or pooled
// across runs.
type Config struct {
	// Logging configures structured log output.
	Logging telemetry.LoggingConfig `yaml:"logging" validate:"required"`

	// Telemetry configures metrics and tracing.
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Transport selects how platform commands are executed.
	Transport TransportConfig `yaml:"transport"`

	// History configures the local deployment history store.
	History HistoryConfig `yaml:"history"`

	// Deploy configures the blue/green deployment flow.
	Deploy *DeployConfig `yaml:"deploy,omitempty"`

	// Rollback configures the blue/green rollback flow.
	Rollback *RollbackConfig `yaml:"rollback,omitempty"`

	// Kubernetes configures the rolling-platform rollback flow.
	Kubernetes *KubernetesConfig `yaml:"kubernetes,omitempty"`
}

// TransportConfig selects and configures the command transport.
type TransportConfig struct {
	// Kind is "local" or "ssh".
	Kind string `yaml:"kind" validate:"omitempty,oneof=local ssh"`

	// SSH configures the remote transport when Kind is "ssh".
	SSH *SSHConfig `yaml:"ssh,omitempty"`
}

// SSHConfig describes the remote runner host.
type SSHConfig struct {
	Host string `yaml:"host" validate:"required,hostname|ip"`
	Port int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	User string `yaml:"user" validate:"required"`

	// PrivateKeyPath is the key used to authenticate. Empty falls back
	// to the ssh agent.
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`

	// KnownHostsPath verifies the host key. Empty disables verification,
	// which is only acceptable for ephemeral CI runners.
	KnownHostsPath string `yaml:"known_hosts_path,omitempty"`

	// StagingDir is where revision bundles are staged on the remote
	// host before upload.
	StagingDir string `yaml:"staging_dir,omitempty"`

	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}

// HistoryConfig configures the local sqlite history store.
type HistoryConfig struct {
	// Path is the database file. Empty disables history recording.
	Path string `yaml:"path,omitempty"`
}

// DeployConfig configures one blue/green deployment.
type DeployConfig struct {
	Application string `yaml:"application" validate:"required"`
	Group       string `yaml:"group" validate:"required"`

	// Region and RoleARN scope platform credentials. Empty RoleARN means
	// ambient identity.
	Region  string `yaml:"region,omitempty"`
	RoleARN string `yaml:"role_arn,omitempty"`

	AppSpecPath string            `yaml:"app_spec_path,omitempty"`
	TaskDefPath string            `yaml:"task_def_path,omitempty"`
	Tokens      map[string]string `yaml:"tokens,omitempty"`

	Image         string `yaml:"image,omitempty"`
	ContainerName string `yaml:"container_name,omitempty"`

	// Transport is "auto", "reference" or "inline".
	Transport string       `yaml:"transport,omitempty" validate:"omitempty,oneof=auto reference inline"`
	Store     *StoreConfig `yaml:"store,omitempty"`

	Timeout      time.Duration `yaml:"timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// StoreConfig addresses the revision bundle object store.
type StoreConfig struct {
	Bucket string `yaml:"bucket" validate:"required"`
	Key    string `yaml:"key" validate:"required"`
}

// RollbackConfig configures one blue/green rollback.
type RollbackConfig struct {
	DeploymentID string `yaml:"deployment_id" validate:"required"`

	// Mode is one of stopOnly, stopAndAutoRollback, autoRollbackOnly,
	// manualRedeploy.
	Mode string `yaml:"mode" validate:"required"`

	Region  string `yaml:"region,omitempty"`
	RoleARN string `yaml:"role_arn,omitempty"`

	// Cluster, Service and SpecRef drive the manual redeploy mode.
	Cluster string `yaml:"cluster,omitempty"`
	Service string `yaml:"service,omitempty"`
	SpecRef string `yaml:"spec_ref,omitempty"`

	// Settle bounds the post-action wait for the platform to settle.
	Settle *RetryConfig `yaml:"settle,omitempty"`
}

// RetryConfig is the yaml shape of a retry policy.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts" validate:"omitempty,min=1"`
	InitialDelay  time.Duration `yaml:"initial_delay,omitempty"`
	BackoffFactor float64       `yaml:"backoff_factor,omitempty" validate:"omitempty,min=1"`
}

// KubernetesConfig configures one rolling-platform rollback.
type KubernetesConfig struct {
	// Mode is helmRollback or kubectlUndo.
	Mode string `yaml:"mode" validate:"required"`

	KubeContext string `yaml:"kube_context,omitempty"`
	Namespace   string `yaml:"namespace" validate:"required"`

	Release string `yaml:"release,omitempty"`
	Kind    string `yaml:"kind,omitempty"`
	Name    string `yaml:"name,omitempty"`

	Revision int    `yaml:"revision,omitempty" validate:"omitempty,min=1"`
	Selector string `yaml:"selector,omitempty"`

	MaxDiagnostics   int           `yaml:"max_diagnostics,omitempty" validate:"omitempty,min=1"`
	StabilizeTimeout time.Duration `yaml:"stabilize_timeout,omitempty"`
}

// DeploymentRequest maps the deploy section onto an engine request.
func (c *DeployConfig) DeploymentRequest() engine.DeploymentRequest {
	req := engine.DeploymentRequest{
		Application:   c.Application,
		Group:         c.Group,
		AppSpecPath:   c.AppSpecPath,
		TaskDefPath:   c.TaskDefPath,
		Tokens:        c.Tokens,
		Image:         c.Image,
		ContainerName: c.ContainerName,
		Transport:     engine.RevisionTransport(c.Transport),
		Timeout:       c.Timeout,
		PollInterval:  c.PollInterval,
	}
	if req.Transport == "" {
		req.Transport = engine.TransportAuto
	}
	if c.Store != nil {
		req.Store = &engine.StoreLocation{Bucket: c.Store.Bucket, Key: c.Store.Key}
	}
	return req
}

// RollbackRequest maps the rollback section onto an engine request.
func (c *RollbackConfig) RollbackRequest() engine.RollbackRequest {
	req := engine.RollbackRequest{
		DeploymentID: c.DeploymentID,
		Mode:         engine.RollbackMode(c.Mode),
		Cluster:      c.Cluster,
		Service:      c.Service,
		SpecRef:      c.SpecRef,
	}
	if c.Settle != nil {
		req.SettlePolicy = c.Settle.Policy()
	}
	return req
}

// Policy materializes defaults for unset retry fields.
func (c *RetryConfig) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.InitialDelay > 0 {
		p.InitialDelay = c.InitialDelay
	}
	if c.BackoffFactor >= 1.0 {
		p.BackoffFactor = c.BackoffFactor
	}
	return p
}

// KubeRollback maps the kubernetes section onto an engine request.
func (c *KubernetesConfig) KubeRollback() engine.KubeRollback {
	return engine.KubeRollback{
		Mode:             engine.KubeRollbackMode(c.Mode),
		Release:          c.Release,
		Kind:             c.Kind,
		Name:             c.Name,
		Namespace:        c.Namespace,
		Revision:         c.Revision,
		Selector:         c.Selector,
		MaxDiagnostics:   c.MaxDiagnostics,
		StabilizeTimeout: c.StabilizeTimeout,
	}
}
