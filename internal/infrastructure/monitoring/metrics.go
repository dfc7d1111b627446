package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. All methods are safe on a nil receiver
// so components can run without instrumentation.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Frame tree metrics
	FramesLive      prometheus.Gauge
	TreesLive       prometheus.Gauge
	ProxiesLive     prometheus.Gauge
	PendingDeletion prometheus.Gauge
	FramesCreated   prometheus.Counter
	FramesDestroyed prometheus.Counter

	// Navigation metrics
	Navigations        *prometheus.CounterVec
	NavigationDuration *prometheus.HistogramVec

	// Process metrics
	SiteGroups      prometheus.Gauge
	ProcessLaunches *prometheus.CounterVec
	ProcessGone     prometheus.Counter

	// IPC metrics
	MessagesSent       *prometheus.CounterVec
	MessagesDropped    *prometheus.CounterVec
	ProtocolViolations *prometheus.CounterVec

	// Input metrics
	InputRouted *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	Frames             int64 `json:"frames"`
	Proxies            int64 `json:"proxies"`
	SiteGroups         int64 `json:"site_groups"`
	ProcessGone        int64 `json:"process_gone"`
	ProtocolViolations int64 `json:"protocol_violations"`
}

// NewMetrics creates a metrics collector registered on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolation_http_requests_total",
				Help: "Total number of embedder API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isolation_http_request_duration_seconds",
				Help:    "Embedder API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),

		FramesLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "isolation_frames_live",
			Help: "Number of frames attached to a tree",
		}),
		TreesLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "isolation_trees_live",
			Help: "Number of frame trees (pages)",
		}),
		ProxiesLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "isolation_proxies_live",
			Help: "Number of frame proxies across all processes",
		}),
		PendingDeletion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "isolation_hosts_pending_deletion",
			Help: "Hosts waiting for their unload acknowledgement",
		}),
		FramesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "isolation_frames_created_total",
			Help: "Total number of frames created",
		}),
		FramesDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "isolation_frames_destroyed_total",
			Help: "Total number of frames destroyed",
		}),

		Navigations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolation_navigations_total",
				Help: "Navigations by site group decision and outcome",
			},
			[]string{"decision", "outcome"},
		),
		NavigationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isolation_navigation_duration_seconds",
				Help:    "Time from navigation start to commit or cancellation",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"decision"},
		),

		SiteGroups: factory.NewGauge(prometheus.GaugeOpts{
			Name: "isolation_site_groups",
			Help: "Number of live site groups",
		}),
		ProcessLaunches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolation_process_launches_total",
				Help: "Content process launch attempts by result",
			},
			[]string{"result"},
		),
		ProcessGone: factory.NewCounter(prometheus.CounterOpts{
			Name: "isolation_process_gone_total",
			Help: "Content processes that exited or were terminated",
		}),

		MessagesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolation_ipc_messages_sent_total",
				Help: "Messages sent from the coordinator by kind",
			},
			[]string{"kind"},
		),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolation_ipc_messages_dropped_total",
				Help: "Inbound messages dropped by reason",
			},
			[]string{"kind", "reason"},
		),
		ProtocolViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolation_protocol_violations_total",
				Help: "Content processes terminated for sending inconsistent messages",
			},
			[]string{"kind"},
		),

		InputRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolation_input_events_routed_total",
				Help: "Input events routed by target kind",
			},
			[]string{"target"},
		),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "isolation_uptime_seconds",
			Help: "Coordinator uptime in seconds",
		}),
	}

	return m
}

// RecordHTTPRequest records an embedder API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetTreeCounts publishes the current tree population
func (m *Metrics) SetTreeCounts(trees, frames, proxies, pending int) {
	if m == nil {
		return
	}
	m.TreesLive.Set(float64(trees))
	m.FramesLive.Set(float64(frames))
	m.ProxiesLive.Set(float64(proxies))
	m.PendingDeletion.Set(float64(pending))

	m.mu.Lock()
	m.snapshot.Frames = int64(frames)
	m.snapshot.Proxies = int64(proxies)
	m.mu.Unlock()
}

// FrameCreated counts a new frame
func (m *Metrics) FrameCreated() {
	if m == nil {
		return
	}
	m.FramesCreated.Inc()
}

// FrameDestroyed counts a destroyed frame
func (m *Metrics) FrameDestroyed() {
	if m == nil {
		return
	}
	m.FramesDestroyed.Inc()
}

// RecordNavigation records a finished navigation
func (m *Metrics) RecordNavigation(decision, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(decision, outcome).Inc()
	if duration > 0 {
		m.NavigationDuration.WithLabelValues(decision).Observe(duration.Seconds())
	}
}

// SetSiteGroups publishes the number of live site groups
func (m *Metrics) SetSiteGroups(count int) {
	if m == nil {
		return
	}
	m.SiteGroups.Set(float64(count))
	m.mu.Lock()
	m.snapshot.SiteGroups = int64(count)
	m.mu.Unlock()
}

// RecordLaunch records a process launch attempt
func (m *Metrics) RecordLaunch(result string) {
	if m == nil {
		return
	}
	m.ProcessLaunches.WithLabelValues(result).Inc()
}

// RecordProcessGone records a content process exit
func (m *Metrics) RecordProcessGone() {
	if m == nil {
		return
	}
	m.ProcessGone.Inc()
	m.mu.Lock()
	m.snapshot.ProcessGone++
	m.mu.Unlock()
}

// RecordSent records an outbound message
func (m *Metrics) RecordSent(kind string) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(kind).Inc()
}

// RecordDropped records a dropped inbound message
func (m *Metrics) RecordDropped(kind, reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(kind, reason).Inc()
}

// RecordViolation records a protocol violation
func (m *Metrics) RecordViolation(kind string) {
	if m == nil {
		return
	}
	m.ProtocolViolations.WithLabelValues(kind).Inc()
	m.mu.Lock()
	m.snapshot.ProtocolViolations++
	m.mu.Unlock()
}

// RecordInput records a routed input event
func (m *Metrics) RecordInput(target string) {
	if m == nil {
		return
	}
	m.InputRouted.WithLabelValues(target).Inc()
}

// UpdateUptime refreshes the uptime gauge
func (m *Metrics) UpdateUptime() {
	if m == nil {
		return
	}
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// Snapshot returns a copy of the tracked values
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
