// Package telemetry provides logging, metrics, tracing and lifecycle
// events for deployctl.
//
// Logging wraps zerolog: NewLogger builds a configured logger and
// InstallGlobal makes it the process-wide default so every package that
// logs through zerolog/log shares the same output and level. Field
// helpers (WithDeploymentID, WithApplication, WithRelease) attach the
// identifiers a deployment investigation starts from.
//
// Metrics are Prometheus collectors on a private registry: deployment
// and rollback counters, platform command durations, wait timeout
// counters. One-shot pipeline runs usually leave the listen
// address empty and never serve the endpoint; long-lived runners expose
// it with Serve.
//
// Tracing is OpenTelemetry with stdout and OTLP gRPC exporters. Spans
// cover one deployment, one rollback, or one external command.
//
// Events are the durable timeline: each deployment or rollback step is
// emitted once, logged, and fanned out to sinks such as the history
// store. Emission is synchronous; an invocation is a single serialized
// pipeline step with nothing to buffer.
package telemetry
