// Package monitoring tracks request and process counters for the stats
// method. Metrics register on a private Prometheus registry: the agent
// has no scrape endpoint, stdout belongs to the protocol, and peers
// pull numbers through stats instead.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Wire metrics
	BytesIn  prometheus.Counter
	BytesOut prometheus.Counter

	// Process metrics
	ProcsActive prometheus.Gauge
	ProcsTotal  prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry

	// Snapshot for the stats method - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for the stats method
type MetricsSnapshot struct {
	TotalRequests int64
	TotalErrors   int64
	ActiveProcs   int64
	BytesIn       int64
	BytesOut      int64
	UptimeSecs    float64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		startTime: time.Now(),
		registry:  registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_requests_total",
				Help: "Total number of protocol requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_request_duration_seconds",
				Help:    "Request handling duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		BytesIn: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_bytes_in_total",
				Help: "Total bytes read from the request stream",
			},
		),
		BytesOut: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_bytes_out_total",
				Help: "Total bytes written to the response stream",
			},
		),
		ProcsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agent_procs_active",
				Help: "Number of live supervised processes",
			},
		),
		ProcsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_procs_total",
				Help: "Total number of processes started",
			},
		),
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agent_uptime_seconds",
				Help: "Agent uptime in seconds",
			},
		),
	}
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one dispatched request
func (m *Metrics) RecordRequest(method string, failed bool, duration time.Duration) {
	status := "ok"
	if failed {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if failed {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// AddBytesIn records bytes consumed from the request stream
func (m *Metrics) AddBytesIn(n int) {
	m.BytesIn.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesIn += int64(n)
	m.mu.Unlock()
}

// AddBytesOut records bytes emitted on the response stream
func (m *Metrics) AddBytesOut(n int) {
	m.BytesOut.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesOut += int64(n)
	m.mu.Unlock()
}

// ProcStarted records a new supervised process
func (m *Metrics) ProcStarted() {
	m.ProcsActive.Inc()
	m.ProcsTotal.Inc()
	m.mu.Lock()
	m.snapshot.ActiveProcs++
	m.mu.Unlock()
}

// ProcEnded records a supervised process going away
func (m *Metrics) ProcEnded() {
	m.ProcsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveProcs--
	m.mu.Unlock()
}

// GetSnapshot returns current metric values
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime).Seconds()
	m.Uptime.Set(uptime)

	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snapshot
	snap.UptimeSecs = uptime
	return snap
}
