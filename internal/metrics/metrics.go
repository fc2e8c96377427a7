// Package metrics records digest scheduler activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/digestmail/internal/app"
)

const namespace = "digestmail"

// Metrics holds the Prometheus collectors for one service instance.
// It implements app.DigestEventEmitter and app.StateEmitter.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	DigestsSent     prometheus.Counter
	DigestEvents    prometheus.Counter
	FlushErrors     prometheus.Counter
	EventsDiscarded prometheus.Counter
	SendDuration    prometheus.Histogram
	State           prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg selects
// a fresh registry that also carries the Go runtime and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Events received, by source.",
		}, []string{"source"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped before buffering, by reason.",
		}, []string{"reason"}), // reason: disabled, shutdown
		DigestsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_sent_total",
			Help:      "Digest emails delivered.",
		}),
		DigestEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_events_total",
			Help:      "Events delivered inside digests.",
		}),
		FlushErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_errors_total",
			Help:      "Flush cycles abandoned after a delivery failure.",
		}),
		EventsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_discarded_total",
			Help:      "Events lost because their flush cycle failed.",
		}),
		SendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "digest_send_duration_seconds",
			Help:      "Time to render and deliver one digest.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Service lifecycle state (0 stopped, 1 starting, 2 running, 3 stopping, 4 crashed).",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveReceived counts one event from source.
func (m *Metrics) ObserveReceived(source string) {
	m.EventsReceived.WithLabelValues(source).Inc()
}

// OnEventDropped implements app.DigestEventEmitter.
func (m *Metrics) OnEventDropped(reason string) {
	m.EventsDropped.WithLabelValues(reason).Inc()
}

// OnDigestSent implements app.DigestEventEmitter.
func (m *Metrics) OnDigestSent(events int, duration time.Duration) {
	m.DigestsSent.Inc()
	m.DigestEvents.Add(float64(events))
	m.SendDuration.Observe(duration.Seconds())
}

// OnFlushError implements app.DigestEventEmitter.
func (m *Metrics) OnFlushError(err error, sent, discarded int) {
	m.FlushErrors.Inc()
	m.EventsDiscarded.Add(float64(discarded))
}

// OnStateChange implements app.StateEmitter.
func (m *Metrics) OnStateChange(previous, current app.State, reason string) {
	m.State.Set(float64(current))
}

var (
	_ app.DigestEventEmitter = (*Metrics)(nil)
	_ app.StateEmitter       = (*Metrics)(nil)
)
