package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/isso/internal"
)

// DefaultMetricsPath is where the profile endpoint is mounted.
const DefaultMetricsPath = "/metrics"

// unmatchedRoute labels requests that never reached a handler.
const unmatchedRoute = "unmatched"

// Profile records per-route request timings when server.profile is on.
type Profile struct {
	registry *prometheus.Registry
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	path     string
}

// NewProfile creates the collectors on a fresh registry.
func NewProfile() *Profile {
	p := &Profile{
		registry: prometheus.NewRegistry(),
		path:     DefaultMetricsPath,
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "isso",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isso",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "isso",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method", "route"}),
	}

	p.registry.MustRegister(
		p.inFlight,
		p.requests,
		p.duration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return p
}

// Registry exposes the underlying registry.
func (p *Profile) Registry() *prometheus.Registry {
	return p.registry
}

// Routes mounts the scrape endpoint.
func (p *Profile) Routes(r internal.Router) {
	r.GET(p.path, internal.WrapHTTP(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})))
}

// Stage times every request and labels it with the route it was bound to.
func (p *Profile) Stage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		p.inFlight.Inc()
		defer p.inFlight.Dec()

		next.ServeHTTP(rec, r)

		route := unmatchedRoute
		if l := internal.LocalFrom(r.Context()); l != nil && l.Route() != "" {
			route = l.Route()
		}
		p.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		p.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.written = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
