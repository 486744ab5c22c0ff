// Package metrics provides Prometheus metrics for the fairness scoring subsystem.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Manager manages all Prometheus metrics for the scoring subsystem.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring
	roundsScored        prometheus.Counter
	roundFailures       *prometheus.CounterVec
	roundLatency        prometheus.Histogram
	validatorsScored    prometheus.Counter
	scoringLatency      prometheus.Histogram
	metricClamped       *prometheus.CounterVec
	evaluationOverflows prometheus.Counter

	// Model gate
	modelLoads *prometheus.CounterVec
	modelInfo  *prometheus.GaugeVec

	// Queue / workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge
	workerErrors  prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Harness
	harnessRuns *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fairness",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.roundsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_total",
		Help:      "Total number of rounds scored and ranked",
	})

	m.roundFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "round_failures_total",
		Help:      "Rounds that failed to produce a ranking, by reason",
	}, []string{"reason"})

	m.roundLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "round_latency_milliseconds",
		Help:      "Wall time from round submission to ranking",
		Buckets:   m.histogramBuckets,
	})

	m.validatorsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validators_scored_total",
		Help:      "Total number of validator score computations",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validator_latency_milliseconds",
		Help:      "Time spent scoring a single validator",
		Buckets:   m.histogramBuckets,
	})

	m.metricClamped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "metric_clamped_total",
		Help:      "Metric values clamped into [0, SCALE] before scoring, by metric",
	}, []string{"metric"})

	m.evaluationOverflows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_overflows_total",
		Help:      "D-GBDT accumulator overflows (corrupted model signal)",
	})

	m.modelLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "model",
		Name:      "loads_total",
		Help:      "Model integrity gate outcomes, by result",
	}, []string{"result"})

	m.modelInfo = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "model",
		Name:      "info",
		Help:      "Currently active model; value is always 1",
	}, []string{"model_hash", "fingerprint"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of queued scoring jobs",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of queued scoring jobs",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of scoring workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Scoring jobs that returned an error",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.harnessRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "harness",
		Name:      "runs_total",
		Help:      "Determinism harness runs by mode and outcome",
	}, []string{"mode", "outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration by endpoint, method and status code",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordRoundScored increments the scored rounds counter and observes latency.
func RecordRoundScored(latencyMs float64) {
	globalManager.roundsScored.Inc()
	globalManager.roundLatency.Observe(latencyMs)
}

// RecordRoundFailure increments the failed rounds counter.
func RecordRoundFailure(reason string) {
	globalManager.roundFailures.WithLabelValues(reason).Inc()
}

// RecordValidatorScored increments the validator counter and observes latency.
func RecordValidatorScored(latencyMs float64) {
	globalManager.validatorsScored.Inc()
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordMetricClamped counts one clamp event for the named metric.
func RecordMetricClamped(metric string) {
	globalManager.metricClamped.WithLabelValues(metric).Inc()
}

// MetricClampedTotal returns the clamp counter for the named metric.
func MetricClampedTotal(metric string) float64 {
	return counterValue(globalManager.metricClamped.WithLabelValues(metric))
}

// RecordEvaluationOverflow counts an accumulator overflow.
func RecordEvaluationOverflow() {
	globalManager.evaluationOverflows.Inc()
}

// RecordModelLoad counts an integrity gate outcome ("ok", "format_error", ...).
func RecordModelLoad(result string) {
	globalManager.modelLoads.WithLabelValues(result).Inc()
}

// ModelLoadTotal returns the gate outcome counter for result.
func ModelLoadTotal(result string) float64 {
	return counterValue(globalManager.modelLoads.WithLabelValues(result))
}

// SetActiveModel replaces the model info series with the given hash.
func SetActiveModel(modelHash, fingerprint string) {
	globalManager.modelInfo.Reset()
	globalManager.modelInfo.WithLabelValues(modelHash, fingerprint).Set(1)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordHarnessRun records a determinism harness run.
func RecordHarnessRun(mode, outcome string) {
	globalManager.harnessRuns.WithLabelValues(mode, outcome).Inc()
}

// RecordHTTPRequest counts an HTTP request and observes its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrObserveFailed, err)
	}
	return nil
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
