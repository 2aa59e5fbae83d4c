// Package metrics holds the Prometheus collectors exported by the Bancho
// server. Every collector is registered on the Metrics' own registry so that
// tests can build as many instances as they like.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kisumi"

// Request kinds recorded by RecordRequest.
const (
	RequestLogin   = "login"
	RequestPackets = "packets"
	RequestRestart = "restart"
)

type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	packets        *prometheus.CounterVec
	onlineSessions prometheus.Gauge
	onlineUsers    prometheus.Gauge
	loginFailures  *prometheus.CounterVec
	handlerPanics  prometheus.Counter
	loginDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Bancho requests by kind.",
		}, []string{"kind"}),
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Client packets dispatched by packet id.",
		}, []string{"id"}),
		onlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Sessions currently attached to an online user.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users with at least one attached session.",
		}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_failures_total",
			Help:      "Rejected logins by reason.",
		}, []string{"reason"}),
		handlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Packet handlers that panicked.",
		}),
		loginDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "login_duration_seconds",
			Help:      "Time spent handling successful logins.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.packets,
		m.onlineSessions,
		m.onlineUsers,
		m.loginFailures,
		m.handlerPanics,
		m.loginDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests that gather the collected values.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordRequest(kind string) {
	m.requests.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordPacket(id uint16) {
	m.packets.WithLabelValues(strconv.Itoa(int(id))).Inc()
}

func (m *Metrics) RecordLoginFailure(reason string) {
	m.loginFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordLoginDuration(seconds float64) {
	m.loginDuration.Observe(seconds)
}

func (m *Metrics) RecordHandlerPanic() {
	m.handlerPanics.Inc()
}

// SetOnline updates the online gauges.
func (m *Metrics) SetOnline(sessions, users int) {
	m.onlineSessions.Set(float64(sessions))
	m.onlineUsers.Set(float64(users))
}
