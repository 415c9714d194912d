package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/poll"
)

// DeploymentRequest describes one blue/green deployment. It is
// constructed once per invocation and never mutated.
type DeploymentRequest struct {
	// Application and Group identify the deployment target on the
	// platform.
	Application string `json:"application"`
	Group       string `json:"group"`

	// AppSpecPath and TaskDefPath are workspace manifest files. Empty
	// paths fall back to the bundled samples.
	AppSpecPath string `json:"app_spec_path,omitempty"`
	TaskDefPath string `json:"task_def_path,omitempty"`

	// Tokens are literal replacements applied to both manifests.
	Tokens map[string]string `json:"tokens,omitempty"`

	// Image is the container image to promote. Empty means the workload
	// definition is submitted as-is.
	Image string `json:"image,omitempty"`

	// ContainerName selects which container receives Image. When the
	// name is not found the first container is used.
	ContainerName string `json:"container_name,omitempty"`

	// Transport selects the revision submission strategy. TransportAuto
	// picks reference-based when Store is set, inline otherwise.
	Transport RevisionTransport `json:"transport,omitempty"`

	// Store is the object-store location for reference-based submission.
	Store *StoreLocation `json:"store,omitempty"`

	// Timeout and PollInterval bound the wait for a terminal state. Zero
	// values take the package defaults.
	Timeout      time.Duration `json:"timeout,omitempty"`
	PollInterval time.Duration `json:"poll_interval,omitempty"`
}

// Validate fails fast on caller mistakes, before any external call.
func (r *DeploymentRequest) Validate() error {
	if r.Application == "" {
		return NewValidationError("application is required")
	}
	if r.Group == "" {
		return NewValidationError("deployment group is required")
	}
	if err := r.Transport.Validate(); err != nil {
		return err
	}
	if r.Transport == TransportReference && r.Store == nil {
		return NewValidationError("reference transport requires a store location")
	}
	if r.Store != nil && (r.Store.Bucket == "" || r.Store.Key == "") {
		return NewValidationError("store location requires bucket and key")
	}
	return nil
}

// transport resolves the effective transport after auto-selection. An
// unset Transport auto-selects like TransportAuto.
func (r *DeploymentRequest) transport() RevisionTransport {
	if r.Transport != "" && r.Transport != TransportAuto {
		return r.Transport
	}
	if r.Store != nil {
		return TransportReference
	}
	return TransportInline
}

// Driver runs blue/green deployments end to end: materialize the
// manifest pair, package and submit a revision, then poll the platform
// until the deployment reaches a terminal state.
type Driver struct {
	// deployments is the deployment platform boundary.
	deployments DeploymentService

	// store uploads revision bundles for reference-based submission.
	store ObjectStore
}

// NewDriver creates a deployment driver. store may be nil when only
// inline submission is used.
func NewDriver(deployments DeploymentService, store ObjectStore) *Driver {
	return &Driver{
		deployments: deployments,
		store:       store,
	}
}

// Deploy submits the request and blocks until the deployment is
// terminal. It returns the terminal record; a terminal state other than
// Succeeded is returned as a classified deployment failure carrying the
// platform-reported message.
func (d *Driver) Deploy(ctx context.Context, req DeploymentRequest) (DeploymentRecord, error) {
	if err := req.Validate(); err != nil {
		return DeploymentRecord{}, err
	}

	rev, err := d.prepareRevision(ctx, req)
	if err != nil {
		return DeploymentRecord{}, err
	}

	id, err := d.deployments.CreateDeployment(ctx, req.Application, req.Group, rev)
	if err != nil {
		return DeploymentRecord{}, err
	}

	log.Info().
		Str("deployment_id", id).
		Str("application", req.Application).
		Str("group", req.Group).
		Str("transport", string(rev.Transport)).
		Msg("deployment submitted")

	record, err := d.awaitTerminal(ctx, id, req)
	if err != nil {
		return record, err
	}

	if record.Status != StatusSucceeded {
		return record, NewDeploymentFailedError(id, record.Status, record.ErrorMessage)
	}

	log.Info().
		Str("deployment_id", id).
		Msg("deployment succeeded")
	return record, nil
}

// prepareRevision materializes the manifest pair, injects the image, and
// packages the revision in the requested transport form.
func (d *Driver) prepareRevision(ctx context.Context, req DeploymentRequest) (Revision, error) {
	pair, err := LoadManifests(req.AppSpecPath, req.TaskDefPath, req.Tokens)
	if err != nil {
		return Revision{}, err
	}

	if req.Image != "" {
		updated, injected, err := InjectImage(pair.TaskDefinition, req.ContainerName, req.Image)
		if err != nil {
			return Revision{}, err
		}
		pair.TaskDefinition = updated
		log.Info().
			Str("container", injected).
			Str("image", req.Image).
			Msg("image injected into workload definition")
	}

	switch req.transport() {
	case TransportReference:
		return d.referenceRevision(ctx, pair, *req.Store)
	default:
		return Revision{
			Transport: TransportInline,
			Content:   string(pair.AppSpec),
			SHA256:    ContentDigest(pair.AppSpec),
		}, nil
	}
}

// referenceRevision packages the pair into a bundle, uploads it, and
// returns the store coordinates.
func (d *Driver) referenceRevision(ctx context.Context, pair ManifestPair, loc StoreLocation) (Revision, error) {
	if d.store == nil {
		return Revision{}, NewValidationError("reference transport requires an object store")
	}

	dir, err := os.MkdirTemp("", "deployctl-revision-")
	if err != nil {
		return Revision{}, NewInternalError("creating revision workspace", err)
	}
	defer os.RemoveAll(dir)

	path, digest, err := PackageBundle(pair, dir)
	if err != nil {
		return Revision{}, err
	}

	if err := d.store.Put(ctx, path, loc); err != nil {
		return Revision{}, err
	}

	log.Debug().
		Str("bucket", loc.Bucket).
		Str("key", loc.Key).
		Str("sha256", digest).
		Msg("revision bundle uploaded")

	return Revision{
		Transport: TransportReference,
		Store:     &loc,
		SHA256:    digest,
	}, nil
}

// awaitTerminal polls deployment status until it is terminal. The last
// observed record is returned alongside any timeout error so failures
// stay explainable from the error text alone.
func (d *Driver) awaitTerminal(ctx context.Context, id string, req DeploymentRequest) (DeploymentRecord, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultDeployTimeout
	}
	interval := req.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var record DeploymentRecord
	policy := poll.Policy{
		Timeout:  timeout,
		Interval: interval,
		Label:    fmt.Sprintf("deployment %s terminal", id),
	}
	err := poll.Until(ctx, policy, func(ctx context.Context) (bool, error) {
		current, err := d.deployments.GetDeployment(ctx, id)
		if err != nil {
			return false, err
		}
		record = current
		log.Debug().
			Str("deployment_id", id).
			Str("status", string(current.Status)).
			Msg("deployment status")
		return current.Status.IsTerminal(), nil
	})
	if err != nil {
		if poll.IsTimeout(err) {
			return record, NewTimeoutError(fmt.Sprintf(
				"deployment %s did not reach a terminal state within %s (last status %s)",
				id, timeout, record.Status), err)
		}
		return record, err
	}
	return record, nil
}
