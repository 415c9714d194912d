// Package engine is the deployment orchestration core of deployctl.
//
// # Overview
//
// The engine drives two deployment platforms through a shared set of
// primitives:
//
//  1. Deploy - Materialize manifests, package a revision, submit it, and
//     poll the platform until the deployment is terminal (Driver)
//  2. Rollback - Stop a failed blue/green deployment, optionally with
//     platform auto-rollback or a manual redeploy (Coordinator)
//  3. Kube Rollback - Roll a release or workload back through its
//     revision history and wait for it to stabilize (KubeCoordinator)
//
// # Core Domain Types
//
//   - DeploymentRequest: One immutable blue/green deployment invocation
//   - DeploymentRecord: The platform-owned deployment state, read-only here
//   - Revision: A packaged deployment artifact in reference or inline form
//   - RollbackSummary / KubeRollbackSummary: What a rollback did and where
//     the workload ended up
//   - InstanceDiagnostic: Captured detail for one unhealthy instance
//
// # Boundary Interfaces
//
// External platforms are consumed through interfaces only; the pkg/platforms
// and pkg/transports trees provide the implementations:
//
//   - CommandRunner: External command execution
//   - DeploymentService: Blue/green submit, status, stop
//   - WorkloadService: Workload runtime redeploy and steady-state wait
//   - ObjectStore: Revision bundle upload
//   - ReleaseService / RolloutService: Rolling-platform history, rollback,
//     and diagnostics
//   - CredentialScoper: Scoped platform credentials per invocation
//
// # Error Classification
//
// Errors carry a class and code so callers can dispatch without string
// matching:
//
//	if engine.IsTimeout(err) {
//	    // choose a rollback mode
//	}
//
// Validation and unsupported-mode errors are caller mistakes and are never
// retried. Command failures during best-effort stop paths are swallowed
// into the rollback summary; everywhere else they propagate.
//
// # Concurrency
//
// One invocation is one logical thread of control. Waits are sleep-based
// and block the caller; cancellation is timeout-only via the supplied
// context. At-most-one concurrent orchestration per target resource is
// assumed to be enforced by the invoking scheduler.
package engine
