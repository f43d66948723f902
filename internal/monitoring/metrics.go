package monitoring

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Capability metrics
	CapabilityCalls    *prometheus.CounterVec
	CapabilityDuration *prometheus.HistogramVec
	Faults             *prometheus.CounterVec

	// Host state
	MountsActive   prometheus.Gauge
	SessionsActive prometheus.Gauge
	Redraws        prometheus.Counter
	ScriptRuns     *prometheus.CounterVec

	// Persistence
	SnapshotsSaved  prometheus.Counter
	SnapshotsLoaded prometheus.Counter

	startTime time.Time

	// Snapshot for JSON API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON stats endpoint.
type Snapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	CapabilityCalls int64   `json:"capability_calls"`
	Faults          int64   `json:"faults"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// NewMetrics registers every collector with reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "periphery_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "periphery_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		CapabilityCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "periphery_capability_calls_total",
				Help: "Total number of capability method calls",
			},
			[]string{"capability", "method", "status"},
		),
		CapabilityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "periphery_capability_call_duration_seconds",
				Help:    "Capability call duration in seconds",
				Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"capability", "method"},
		),
		Faults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "periphery_faults_total",
				Help: "Total number of script-visible faults by kind",
			},
			[]string{"kind"},
		),

		MountsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "periphery_mounts_active",
				Help: "Number of active host directory mounts",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "periphery_sessions_active",
				Help: "Number of open script sessions",
			},
		),
		Redraws: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "periphery_redraws_total",
				Help: "Total number of monitor redraws",
			},
		),
		ScriptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "periphery_script_runs_total",
				Help: "Total number of script executions",
			},
			[]string{"language", "status"},
		),

		SnapshotsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "periphery_snapshots_saved_total",
				Help: "Total number of monitor snapshots saved",
			},
		),
		SnapshotsLoaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "periphery_snapshots_loaded_total",
				Help: "Total number of monitor snapshots restored",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "periphery_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCall records one capability dispatch.
func (m *Metrics) RecordCall(capType, method, status string, duration time.Duration) {
	m.CapabilityCalls.WithLabelValues(capType, method, status).Inc()
	m.CapabilityDuration.WithLabelValues(capType, method).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.CapabilityCalls++
	m.mu.Unlock()
}

// RecordFault counts a fault by kind.
func (m *Metrics) RecordFault(kind string) {
	m.Faults.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.Faults++
	m.mu.Unlock()
}

// RecordScriptRun counts a finished script execution.
func (m *Metrics) RecordScriptRun(language, status string) {
	m.ScriptRuns.WithLabelValues(language, status).Inc()
}

// SetSessionsActive sets the number of open sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// IncRedraws counts a monitor redraw.
func (m *Metrics) IncRedraws() {
	m.Redraws.Inc()
}

func (m *Metrics) IncSnapshotsSaved() {
	m.SnapshotsSaved.Inc()
}

func (m *Metrics) IncSnapshotsLoaded() {
	m.SnapshotsLoaded.Inc()
}

// Snapshot returns the running totals.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
