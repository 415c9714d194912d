package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for deployctl.
type Metrics struct {
	config MetricsConfig

	// Deployment metrics
	deploymentsStarted  *prometheus.CounterVec
	deploymentsFinished *prometheus.CounterVec
	deploymentDuration  *prometheus.HistogramVec

	// Rollback metrics
	rollbacksExecuted *prometheus.CounterVec
	swallowedStops    prometheus.Counter

	// External command metrics
	commandRuns     *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	// Retry and wait metrics
	waitTimeouts  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		deploymentsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deployments_started_total",
				Help:      "Total number of deployments submitted",
			},
			[]string{"application", "group"},
		),
		deploymentsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deployments_finished_total",
				Help:      "Total number of deployments that reached a terminal state",
			},
			[]string{"status"},
		),
		deploymentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "deployment_duration_seconds",
				Help:      "Time from submission to terminal state in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		rollbacksExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollbacks_executed_total",
				Help:      "Total number of rollbacks executed",
			},
			[]string{"mode", "outcome"},
		),
		swallowedStops: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swallowed_stop_errors_total",
				Help:      "Stop failures swallowed on best-effort rollback paths",
			},
		),

		commandRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_runs_total",
				Help:      "Total number of external platform commands executed",
			},
			[]string{"command", "outcome"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "External command duration in seconds",
				Buckets:   buckets,
			},
			[]string{"command"},
		),

		waitTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_timeouts_total",
				Help:      "Bounded waits that elapsed before their condition held",
			},
			[]string{"label"},
		),
	}

	collectors := []prometheus.Collector{
		m.deploymentsStarted,
		m.deploymentsFinished,
		m.deploymentDuration,
		m.rollbacksExecuted,
		m.swallowedStops,
		m.commandRuns,
		m.commandDuration,
		m.waitTimeouts,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// DeploymentStarted records a submitted deployment.
func (m *Metrics) DeploymentStarted(application, group string) {
	if m.registry == nil {
		return
	}
	m.deploymentsStarted.WithLabelValues(application, group).Inc()
}

// DeploymentFinished records a terminal deployment with its duration.
func (m *Metrics) DeploymentFinished(status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.deploymentsFinished.WithLabelValues(status).Inc()
	m.deploymentDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RollbackExecuted records a rollback and its outcome.
func (m *Metrics) RollbackExecuted(mode, outcome string) {
	if m.registry == nil {
		return
	}
	m.rollbacksExecuted.WithLabelValues(mode, outcome).Inc()
}

// StopErrorSwallowed records a best-effort stop failure.
func (m *Metrics) StopErrorSwallowed() {
	if m.registry == nil {
		return
	}
	m.swallowedStops.Inc()
}

// CommandRun records one external command execution.
func (m *Metrics) CommandRun(command, outcome string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.commandRuns.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// WaitTimeout records a lapsed bounded wait.
func (m *Metrics) WaitTimeout(label string) {
	if m.registry == nil {
		return
	}
	m.waitTimeouts.WithLabelValues(label).Inc()
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the metrics endpoint. It blocks, so callers run it in a
// goroutine; a one-shot pipeline run typically leaves ListenAddress empty
// and skips this entirely.
func (m *Metrics) Serve() error {
	if m.registry == nil || m.config.ListenAddress == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())
	return http.ListenAndServe(m.config.ListenAddress, mux)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
