package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus collectors for routebot.
// A nil *Registry is valid and records nothing.
type Registry struct {
	// MyFly API
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Discovery
	DiscoveryRunsTotal *prometheus.CounterVec
	DiscoveryAttempts  prometheus.Histogram

	// Delivery
	PostsTotal *prometheus.CounterVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)
	return &Registry{
		APIRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routebot_myfly_requests_total",
				Help: "MyFly API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		APIRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routebot_myfly_request_duration_seconds",
				Help:    "MyFly API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		DiscoveryRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routebot_discovery_runs_total",
				Help: "Route discovery runs by outcome",
			},
			[]string{"outcome"},
		),
		DiscoveryAttempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "routebot_discovery_attempts",
				Help:    "Attempts needed to find a route with itineraries",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 200},
			},
		),
		PostsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routebot_posts_total",
				Help: "Route messages delivered by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveRequest records one MyFly API call.
func (r *Registry) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.APIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	r.APIRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveDiscovery records the outcome of one discovery run.
func (r *Registry) ObserveDiscovery(outcome string, attempts int) {
	if r == nil {
		return
	}
	r.DiscoveryRunsTotal.WithLabelValues(outcome).Inc()
	if outcome == "found" {
		r.DiscoveryAttempts.Observe(float64(attempts))
	}
}

// ObservePost records the outcome of one delivery.
func (r *Registry) ObservePost(outcome string) {
	if r == nil {
		return
	}
	r.PostsTotal.WithLabelValues(outcome).Inc()
}
