// Package obs holds the prometheus collectors shared by the client and the
// dev backend. Collectors are package level; Init registers them once in the
// default registry.
package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Unlock attempt results.
const (
	ResultSuccess   = "success"
	ResultWrongPin  = "wrong_pin"
	ResultNotSet    = "not_set"
	ResultThrottled = "throttled"
	ResultError     = "error"
)

var (
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flexpay",
			Name:      "session_transitions_total",
			Help:      "Lock state transitions.",
		},
		[]string{"from", "to"},
	)

	PinUnlockAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flexpay",
			Name:      "pin_unlock_attempts_total",
			Help:      "PIN and biometric unlock attempts by result.",
		},
		[]string{"result"},
	)

	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flexpay",
			Name:      "backend_requests_total",
			Help:      "Auth backend calls by endpoint and outcome.",
		},
		[]string{"endpoint", "status"},
	)

	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flexpay",
			Name:      "backend_request_duration_seconds",
			Help:      "Auth backend call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	initOnce sync.Once
)

// Init registers every collector in the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			SessionTransitions,
			PinUnlockAttempts,
			BackendRequests,
			BackendLatency,
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBackend records one backend call. status is the HTTP status code, or
// 0 when the request never got a response.
func ObserveBackend(endpoint string, status int, elapsed time.Duration) {
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	BackendRequests.WithLabelValues(endpoint, label).Inc()
	BackendLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Instrument wraps a server handler with request count, latency and in-flight
// metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
