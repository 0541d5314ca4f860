// Package metrics provides Prometheus-backed metrics collection for the
// evaluation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/procurelane/evalengine/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector with Prometheus
// collectors for engine operation latency, oracle usage, and standing
// gauges.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	oracleLatency    *prometheus.HistogramVec
	oracleTokens     *prometheus.CounterVec
	stateGauges      *prometheus.GaugeVec
	histograms       *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them in the
// default Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		operationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalengine_operation_duration_seconds",
				Help:    "Execution time of engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "component"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalengine_operations_total",
				Help: "Total engine operations performed.",
			},
			[]string{"operation", "status"},
		),
		oracleLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalengine_oracle_latency_seconds",
				Help:    "Latency of scoring oracle round trips.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "status"},
		),
		oracleTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalengine_oracle_tokens_total",
				Help: "Tokens consumed by scoring oracle calls.",
			},
			[]string{"provider", "model", "token_type"},
		),
		stateGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evalengine_state",
				Help: "Current engine state values.",
			},
			[]string{"metric"},
		),
		histograms: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalengine_values",
				Help:    "General value distributions such as composite scores.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records operation latency.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	component, ok := labels["component"]
	if !ok {
		component = "unknown"
	}
	pm.operationLatency.WithLabelValues(operation, component).Observe(duration.Seconds())
}

// RecordCounter increments the matching counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "oracle_requests_total":
		pm.operationCounter.WithLabelValues("oracle_request", labels["status"]).Add(value)
	case "oracle_tokens_total":
		pm.oracleTokens.WithLabelValues(labels["provider"], labels["model"], labels["token_type"]).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		operation, ok := labels["operation"]
		if !ok {
			operation = metric
		}
		pm.operationCounter.WithLabelValues(operation, status).Add(value)
	}
}

// RecordGauge sets a state gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.stateGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a value distribution.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "oracle_latency_seconds":
		pm.oracleLatency.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Observe(value)
	default:
		pm.histograms.WithLabelValues(metric).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements the port.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
