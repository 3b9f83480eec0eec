// Package metrics holds the Prometheus collectors for the server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector. All methods are safe on a nil *Metrics so
// callers can leave it unset.
type Metrics struct {
	rendersTotal   prometheus.Counter
	rendersDropped prometheus.Counter
	renderSegments prometheus.Histogram
	renderDuration prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	rooms   prometheus.Gauge
	clients prometheus.Gauge
	ops     *prometheus.CounterVec
	saves   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rendersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fractree_renders_total",
			Help: "Completed render passes",
		}),
		rendersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fractree_renders_dropped_total",
			Help: "Render requests dropped because a pass was already running",
		}),
		renderSegments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fractree_render_segments",
			Help:    "Segments generated per render pass",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fractree_render_duration_seconds",
			Help:    "Time spent in a render pass",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fractree_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fractree_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractree_collab_rooms",
			Help: "Open collaboration rooms",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractree_collab_clients",
			Help: "Connected collaboration clients",
		}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fractree_collab_ops_total",
			Help: "Submitted operations by type and result",
		}, []string{"type", "result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fractree_collab_saves_total",
			Help: "Room saves by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.rendersTotal, m.rendersDropped, m.renderSegments, m.renderDuration,
		m.httpRequests, m.httpDuration,
		m.rooms, m.clients, m.ops, m.saves,
	)
	return m
}

// RenderCompleted records a finished render pass.
func (m *Metrics) RenderCompleted(segments int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rendersTotal.Inc()
	m.renderSegments.Observe(float64(segments))
	m.renderDuration.Observe(elapsed.Seconds())
}

// RenderDropped records a render request that was skipped.
func (m *Metrics) RenderDropped() {
	if m == nil {
		return
	}
	m.rendersDropped.Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RoomOpened() {
	if m != nil {
		m.rooms.Inc()
	}
}

func (m *Metrics) RoomClosed() {
	if m != nil {
		m.rooms.Dec()
	}
}

func (m *Metrics) ClientJoined() {
	if m != nil {
		m.clients.Inc()
	}
}

func (m *Metrics) ClientLeft() {
	if m != nil {
		m.clients.Dec()
	}
}

// OpApplied counts an operation; accepted is false when it was rejected.
func (m *Metrics) OpApplied(opType string, accepted bool) {
	if m == nil {
		return
	}
	result := "ack"
	if !accepted {
		result = "nack"
	}
	m.ops.WithLabelValues(opType, result).Inc()
}

// Saved counts a room save attempt.
func (m *Metrics) Saved(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
}
