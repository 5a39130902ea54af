// Package metrics exposes gateway counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of observations the gateway makes.
type Recorder interface {
	RecordRefresh(success bool)
	RecordAuthSignal(signal string)
	RecordHandshake(outcome string)
	ObserveBackendRequest(method string, status int, elapsed time.Duration)
}

// Handshake outcomes.
const (
	HandshakeLogin   = "login"
	HandshakeSignup  = "signup_required"
	HandshakeInvalid = "invalid"
)

// Collector records to Prometheus.
type Collector struct {
	refreshes      *prometheus.CounterVec
	authSignals    *prometheus.CounterVec
	handshakes     *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_gateway_token_refresh_total",
			Help: "Access token reissue attempts by outcome",
		}, []string{"outcome"}),
		authSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_gateway_auth_signals_total",
			Help: "Unauthorized and forbidden signals raised by backend responses",
		}, []string{"signal"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_gateway_oauth_callbacks_total",
			Help: "OAuth callback handshakes by outcome",
		}, []string{"outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_gateway_backend_request_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status_code"}),
	}

	reg.MustRegister(
		c.refreshes,
		c.authSignals,
		c.handshakes,
		c.backendLatency,
	)
	return c
}

func (c *Collector) RecordRefresh(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordAuthSignal(signal string) {
	c.authSignals.WithLabelValues(signal).Inc()
}

func (c *Collector) RecordHandshake(outcome string) {
	c.handshakes.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveBackendRequest(method string, status int, elapsed time.Duration) {
	c.backendLatency.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the Prometheus scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards every observation.
type Noop struct{}

func (Noop) RecordRefresh(bool)                               {}
func (Noop) RecordAuthSignal(string)                          {}
func (Noop) RecordHandshake(string)                           {}
func (Noop) ObserveBackendRequest(string, int, time.Duration) {}
