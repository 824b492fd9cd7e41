package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/CSroseX/load-degradation-simulator/internal/simulator"
)

// Metrics holds the Prometheus collectors for the HTTP surface and the
// simulator decisions. Each instance owns its registry.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
	errorChance *prometheus.HistogramVec
	registry    *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simulator_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"route", "method"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_outcomes_total",
				Help: "Simulated request outcomes by profile",
			},
			[]string{"profile", "outcome"},
		),
		errorChance: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simulator_error_chance",
				Help:    "Error probability applied at decision time",
				Buckets: prometheus.LinearBuckets(0, 0.1, 10),
			},
			[]string{"profile"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(m.requests, m.duration, m.outcomes, m.errorChance)
	return m
}

// TrackInFlight exposes the simulator counter as a gauge.
func (m *Metrics) TrackInFlight(sim *simulator.Simulator) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "simulator_in_flight_requests",
			Help: "Requests currently being handled by the simulator",
		},
		func() float64 { return float64(sim.InFlight()) },
	))
}

// Observe implements simulator.Observer.
func (m *Metrics) Observe(_ context.Context, d simulator.Decision) {
	m.outcomes.WithLabelValues(d.Profile, d.Outcome.String()).Inc()
	m.errorChance.WithLabelValues(d.Profile).Observe(d.ErrorChance)
}

// Middleware records request counts and latency labelled by the matched
// route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := newStatusCapture(w)

		next.ServeHTTP(sc, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(sc.status())).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
