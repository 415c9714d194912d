package telemetry

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event represents one step in a deployment or rollback timeline. Events
// are emitted synchronously: one invocation is one serialized pipeline
// step, so there is nothing to buffer.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// DeploymentID is the associated platform deployment, if applicable.
	DeploymentID string `json:"deployment_id,omitempty"`

	// Target names the release or workload acted on, if applicable.
	Target string `json:"target,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`
}

// EventType constants for the deployment lifecycle.
const (
	EventTypeDeploymentSubmitted = "deployment.submitted"
	EventTypeDeploymentSucceeded = "deployment.succeeded"
	EventTypeDeploymentFailed    = "deployment.failed"
	EventTypeRollbackStarted     = "rollback.started"
	EventTypeRollbackFinished    = "rollback.finished"
	EventTypeStopSwallowed       = "rollback.stop_swallowed"
	EventTypeRedeployIssued      = "rollback.redeploy_issued"
	EventTypeStabilized          = "rollback.stabilized"
	EventTypeError               = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSink receives emitted events, e.g. the history store.
type EventSink interface {
	Record(event Event) error
}

// Emitter builds and fans events out to sinks, logging each one.
type Emitter struct {
	sinks []EventSink
}

// NewEmitter creates an emitter over the given sinks.
func NewEmitter(sinks ...EventSink) *Emitter {
	return &Emitter{sinks: sinks}
}

// Emit records an event on every sink. A sink failure is logged and does
// not block the invocation; the timeline is observability, not control
// flow.
func (e *Emitter) Emit(eventType, deploymentID, target, message, level string) Event {
	event := Event{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		Type:         eventType,
		DeploymentID: deploymentID,
		Target:       target,
		Message:      message,
		Level:        level,
	}

	logEvent(event)
	for _, sink := range e.sinks {
		if err := sink.Record(event); err != nil {
			log.Warn().Str("event_type", event.Type).Err(err).Msg("event sink failed")
		}
	}
	return event
}

func logEvent(event Event) {
	entry := log.Info()
	switch event.Level {
	case EventLevelWarning:
		entry = log.Warn()
	case EventLevelError:
		entry = log.Error()
	}
	entry.
		Str("event_type", event.Type).
		Str("deployment_id", event.DeploymentID).
		Str("target", event.Target).
		Msg(event.Message)
}
