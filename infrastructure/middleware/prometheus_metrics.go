// Package middleware provides cross-cutting concerns for the survey server:
// metrics, tracing, rate limiting, and access gating.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-ballot/internal/ports"
)

// Metric names understood by PrometheusMetrics. Other names fall through
// to the generic operation and state metrics.
const (
	MetricJudgments             = "judgments_total"
	MetricRankingsFinalized     = "rankings_finalized_total"
	MetricConsistencyFailures   = "consistency_failures_total"
	MetricParticipationRejected = "participation_rejected_total"
	MetricOpenSessions          = "open_sessions"
	MetricJudgmentsPerRanking   = "judgments_per_ranking"
	MetricRankLevels            = "rank_levels"
	MetricAggregatedRespondents = "aggregated_respondents"

	// OperationHTTPRequest is the latency operation recorded per request.
	OperationHTTPRequest = "http_request"
)

const metricsNamespace = "ballot"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks survey progress, finalization outcomes, aggregation cost, and
// request latency.
type PrometheusMetrics struct {
	judgments             *prometheus.CounterVec
	rankingsFinalized     prometheus.Counter
	consistencyFailures   prometheus.Counter
	participationRejected *prometheus.CounterVec
	judgmentsPerRanking   prometheus.Histogram
	rankLevels            prometheus.Histogram
	openSessions          prometheus.Gauge

	executionLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// every metric with reg. Passing a fresh prometheus.NewRegistry keeps
// instances independent; the server passes prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		judgments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      MetricJudgments,
				Help:      "Total number of judgments accepted, by result.",
			},
			[]string{"result"},
		),
		rankingsFinalized: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      MetricRankingsFinalized,
				Help:      "Total number of respondents whose ranking was finalized.",
			},
		),
		consistencyFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      MetricConsistencyFailures,
				Help:      "Total number of finalizations that could not rank every item.",
			},
		),
		participationRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      MetricParticipationRejected,
				Help:      "Total number of survey starts refused as duplicate participation.",
			},
			[]string{"reason"},
		),
		judgmentsPerRanking: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      MetricJudgmentsPerRanking,
				Help:      "Number of judgments a respondent needed before finalization.",
				Buckets:   prometheus.LinearBuckets(0, 10, 16),
			},
		),
		rankLevels: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      MetricRankLevels,
				Help:      "Number of distinct ranks in finalized rankings.",
				Buckets:   prometheus.LinearBuckets(1, 2, 10),
			},
		),
		openSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      MetricOpenSessions,
				Help:      "Number of respondents with a survey in progress.",
			},
		),

		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of survey and aggregation operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Total number of survey and aggregation operations.",
			},
			[]string{"operation", "status"},
		),
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and status code.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "code"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "system_state",
				Help:      "Current system state values.",
			},
			[]string{"metric"},
		),
	}
}

// label returns labels[key], or fallback when the label is absent.
func label(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram. HTTP requests are recorded
// with their method, route, and code labels.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	if operation == OperationHTTPRequest {
		pm.requestLatency.WithLabelValues(
			label(labels, "method", "unknown"),
			label(labels, "route", "unmatched"),
			label(labels, "code", "0"),
		).Observe(duration.Seconds())
		return
	}
	pm.executionLatency.WithLabelValues(operation, label(labels, "status", "ok")).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricJudgments:
		pm.judgments.WithLabelValues(label(labels, "result", "unknown")).Add(value)
	case MetricRankingsFinalized:
		pm.rankingsFinalized.Add(value)
	case MetricConsistencyFailures:
		pm.consistencyFailures.Add(value)
	case MetricParticipationRejected:
		pm.participationRejected.WithLabelValues(label(labels, "reason", "unknown")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, label(labels, "status", "ok")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricOpenSessions:
		pm.openSessions.Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram. Unknown metrics are routed to the
// operation latency histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricJudgmentsPerRanking:
		pm.judgmentsPerRanking.Observe(value)
	case MetricRankLevels:
		pm.rankLevels.Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric, label(labels, "status", "ok")).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
