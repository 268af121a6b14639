// Package metrics exposes Prometheus collectors for the simulation tick,
// the frame loop and combat. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skirmish"

// Projectile removal outcomes.
const (
	OutcomeHit     = "hit"
	OutcomeExpired = "expired"
	OutcomeCleared = "cleared"
)

// Metrics groups every collector the simulation updates.
type Metrics struct {
	registry *prometheus.Registry

	ticks             prometheus.Counter
	tickDuration      prometheus.Histogram
	frames            prometheus.Counter
	frameDuration     prometheus.Histogram
	volleys           *prometheus.CounterVec
	projectilesLive   prometheus.Gauge
	projectileRemoved *prometheus.CounterVec
	shipsLoaded       prometheus.Gauge
	loadFailures      prometheus.Counter
	subscribers       prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Authoritative simulation ticks completed.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent stepping AI ships and notifying subscribers.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Render/update frames processed.",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent in one render/update frame.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		volleys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volleys_total",
			Help:      "Volleys fired, by ammo type.",
		}, []string{"ammo"}),
		projectilesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "projectiles_live",
			Help:      "Projectiles currently in flight.",
		}),
		projectileRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projectiles_removed_total",
			Help:      "Projectiles removed, by outcome.",
		}, []string{"outcome"}),
		shipsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ships_loaded",
			Help:      "Ships with an attached render handle.",
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_load_failures_total",
			Help:      "Model loads that failed after retries.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tick_subscribers",
			Help:      "Registered tick subscribers.",
		}),
	}

	m.registry.MustRegister(
		m.ticks, m.tickDuration,
		m.frames, m.frameDuration,
		m.volleys, m.projectilesLive, m.projectileRemoved,
		m.shipsLoaded, m.loadFailures, m.subscribers,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TickObserved records one completed tick.
func (m *Metrics) TickObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// FrameObserved records one completed frame.
func (m *Metrics) FrameObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.frameDuration.Observe(d.Seconds())
}

// VolleyFired records a volley of the named ammo type.
func (m *Metrics) VolleyFired(ammo string) {
	if m == nil {
		return
	}
	m.volleys.WithLabelValues(ammo).Inc()
}

// ProjectilesLive sets the in-flight projectile gauge.
func (m *Metrics) ProjectilesLive(n int) {
	if m == nil {
		return
	}
	m.projectilesLive.Set(float64(n))
}

// ProjectileRemoved records a projectile removal.
func (m *Metrics) ProjectileRemoved(outcome string) {
	if m == nil {
		return
	}
	m.projectileRemoved.WithLabelValues(outcome).Inc()
}

// ShipsLoaded sets the loaded-ship gauge.
func (m *Metrics) ShipsLoaded(n int) {
	if m == nil {
		return
	}
	m.shipsLoaded.Set(float64(n))
}

// LoadFailed records a failed model load.
func (m *Metrics) LoadFailed() {
	if m == nil {
		return
	}
	m.loadFailures.Inc()
}

// Subscribers sets the tick subscriber gauge.
func (m *Metrics) Subscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
