// Package health classifies workload instances as healthy or unhealthy so
// the rollback coordinators can bound how much diagnostic detail they
// capture. Classification is observational only; it never feeds back into
// the rollback decision.
package health

// Phase is the coarse lifecycle phase of a workload instance, as reported
// by the platform.
type Phase string

const (
	// PhasePending indicates the instance has been accepted but its
	// containers are not all running yet.
	PhasePending Phase = "Pending"

	// PhaseRunning indicates the instance is scheduled and its containers
	// have started.
	PhaseRunning Phase = "Running"

	// PhaseSucceeded indicates all containers terminated successfully.
	// This is a valid terminal state, not a failure.
	PhaseSucceeded Phase = "Succeeded"

	// PhaseFailed indicates at least one container terminated in failure.
	PhaseFailed Phase = "Failed"

	// PhaseUnknown indicates the platform lost contact with the instance.
	PhaseUnknown Phase = "Unknown"
)

// Instance is the health-relevant view of one workload instance.
type Instance struct {
	// Name identifies the instance.
	Name string `json:"name"`

	// Phase is the platform-reported lifecycle phase.
	Phase Phase `json:"phase"`

	// Ready is derived from the instance's "Ready" condition; false when
	// the condition is absent.
	Ready bool `json:"ready"`
}

// IsUnhealthy reports whether the instance needs diagnostic attention. An
// instance is unhealthy when its phase is neither Running nor Succeeded,
// or when it is Running but not Ready.
func IsUnhealthy(in Instance) bool {
	switch in.Phase {
	case PhaseSucceeded:
		return false
	case PhaseRunning:
		return !in.Ready
	default:
		return true
	}
}

// Unhealthy returns up to max unhealthy instances in input order, which
// reflects the platform's listing order. A max of zero or less means no
// bound.
func Unhealthy(instances []Instance, max int) []Instance {
	var out []Instance
	for _, in := range instances {
		if !IsUnhealthy(in) {
			continue
		}
		out = append(out, in)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
