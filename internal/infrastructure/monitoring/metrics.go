package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Trim run metrics
	TrimRuns             prometheus.Counter
	TrimRunDuration      prometheus.Histogram
	TrimFreedBytes       prometheus.Histogram
	TrimProcessesTrimmed prometheus.Counter
	TrimProcessesSkipped prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector registered against the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memsweep_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memsweep_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		TrimRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "memsweep_trim_runs_total",
				Help: "Total number of completed trim runs",
			},
		),
		TrimRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "memsweep_trim_run_duration_seconds",
				Help:    "Trim run duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		TrimFreedBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "memsweep_trim_freed_bytes",
				Help:    "Bytes of physical memory made available per trim run",
				Buckets: prometheus.ExponentialBuckets(1<<20, 4, 10),
			},
		),
		TrimProcessesTrimmed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "memsweep_trim_processes_trimmed_total",
				Help: "Processes whose working set was trimmed",
			},
		),
		TrimProcessesSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "memsweep_trim_processes_skipped_total",
				Help: "Processes skipped after an open or trim refusal",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "memsweep_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "memsweep_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records metrics for one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTrimRun records the aggregate outcome of one trim run.
func (m *Metrics) RecordTrimRun(freedBytes uint64, trimmed, skipped int, duration time.Duration) {
	m.TrimRuns.Inc()
	m.TrimRunDuration.Observe(duration.Seconds())
	m.TrimFreedBytes.Observe(float64(freedBytes))
	m.TrimProcessesTrimmed.Add(float64(trimmed))
	m.TrimProcessesSkipped.Add(float64(skipped))
}

// WSConnect increments the active connection gauge.
func (m *Metrics) WSConnect() {
	m.WSConnections.Inc()
}

// WSDisconnect decrements the active connection gauge.
func (m *Metrics) WSDisconnect() {
	m.WSConnections.Dec()
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
