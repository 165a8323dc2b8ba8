// Package metrics collects and exposes Prometheus metrics for the
// authentication server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the recording interface used by the HTTP layer. A nil-safe
// no-op implementation is not provided; wiring always passes a real one.
type Collector interface {
	RecordLogin(outcome string)
	RecordOAuthLogin(provider, outcome string)
	RecordRegistration()
	RecordRefresh(outcome string)
	RecordRequestDuration(route string, d time.Duration)
}

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// PromCollector records authentication metrics into a Prometheus registry.
type PromCollector struct {
	logins          *prometheus.CounterVec
	oauthLogins     *prometheus.CounterVec
	registrations   prometheus.Counter
	refreshes       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPromCollector creates the collector and registers its metrics.
func NewPromCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_logins_total",
			Help: "Password login attempts by outcome.",
		}, []string{"outcome"}),
		oauthLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_oauth_logins_total",
			Help: "OAuth login attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_registrations_total",
			Help: "Successfully registered users.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_token_refreshes_total",
			Help: "Refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authgate_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.logins,
		c.oauthLogins,
		c.registrations,
		c.refreshes,
		c.requestDuration,
	)

	return c
}

func (c *PromCollector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *PromCollector) RecordOAuthLogin(provider, outcome string) {
	c.oauthLogins.WithLabelValues(provider, outcome).Inc()
}

func (c *PromCollector) RecordRegistration() {
	c.registrations.Inc()
}

func (c *PromCollector) RecordRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *PromCollector) RecordRequestDuration(route string, d time.Duration) {
	c.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler returns the scrape endpoint handler for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
