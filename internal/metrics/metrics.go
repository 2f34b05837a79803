// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	FramesProcessed     atomic.Uint64
	DetectorErrors      atomic.Uint64
	CollisionPairs      atomic.Uint64
	IncidentsConfirmed  atomic.Uint64
	NotificationsSent   atomic.Uint64
	NotificationsFailed atomic.Uint64
	ActiveWSClients     atomic.Int64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) register() {
	counters := []struct {
		name string
		help string
		load func() float64
	}{
		{"accident_frames_processed_total", "Total frames run through the decision pipeline",
			func() float64 { return float64(m.FramesProcessed.Load()) }},
		{"accident_detector_errors_total", "Total failed detector sidecar calls",
			func() float64 { return float64(m.DetectorErrors.Load()) }},
		{"accident_collision_pairs_total", "Total qualifying collision pairs observed",
			func() float64 { return float64(m.CollisionPairs.Load()) }},
		{"accident_incidents_confirmed_total", "Total confirmed accidents",
			func() float64 { return float64(m.IncidentsConfirmed.Load()) }},
		{"accident_notifications_sent_total", "Total successful notification deliveries",
			func() float64 { return float64(m.NotificationsSent.Load()) }},
		{"accident_notifications_failed_total", "Total failed notification deliveries",
			func() float64 { return float64(m.NotificationsFailed.Load()) }},
		{"accident_ws_clients", "Currently connected status-stream clients",
			func() float64 { return float64(m.ActiveWSClients.Load()) }},
	}
	for _, c := range counters {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: c.name, Help: c.help},
			c.load,
		))
	}
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
