package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected with 429."},
	)

	// SolveRuns counts finished solves by outcome (ok, fallback, error)
	SolveRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "carp_solve_runs_total", Help: "Solver runs by outcome."},
		[]string{"outcome"},
	)
	// SolveDuration records wall time of a solve in seconds
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "carp_solve_duration_seconds", Help: "Solve wall time in seconds.", Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}},
	)
	// WorkerReports counts improved solutions published by search workers
	WorkerReports = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "carp_worker_reports_total", Help: "Improved solutions published by workers."},
	)
	// BestCost is the last best cost found per instance name
	BestCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "carp_best_cost", Help: "Best cost of the last run per instance."},
		[]string{"instance"},
	)
	// ActiveRuns is the number of solves in progress
	ActiveRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "carp_active_runs", Help: "Solves in progress."},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, RateLimited)
		Registry.MustRegister(SolveRuns, SolveDuration, WorkerReports, BestCost, ActiveRuns)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming handlers working behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps WebSocket upgrades working behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Instrument records request count and latency under the given route label.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		status := strconv.Itoa(rec.status)
		HTTPRequests.WithLabelValues(r.Method, route, status).Inc()
		HTTPDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// ObserveSolve records the outcome of one finished solve.
func ObserveSolve(instance string, cost int, outcome string, elapsed time.Duration) {
	SolveRuns.WithLabelValues(outcome).Inc()
	SolveDuration.Observe(elapsed.Seconds())
	if outcome != "error" {
		BestCost.WithLabelValues(instance).Set(float64(cost))
	}
}
