package obs

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gearguard_auth_attempts_total",
			Help: "Sign-in and registration attempts by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	requestEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gearguard_request_events_total",
			Help: "Maintenance request lifecycle events published.",
		},
		[]string{"type"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ready",
		Help: "1 when the last readiness check succeeded.",
	})

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Always 1; labels carry the running build.",
		},
		[]string{"version", "env", "goversion"},
	)

	initOnce sync.Once
)

// Init registers collectors in the default registry. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			authAttempts, requestEvents, ready, buildInfo,
		)
	})
}

// SetBuildInfo replaces the build_info series with the given labels.
func SetBuildInfo(version, env string) {
	Init()
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, env, runtime.Version()).Set(1)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RouteFunc resolves the low-cardinality route label for a request.
type RouteFunc func(*http.Request) string

// Instrument measures rate, latency and concurrency per route template.
func Instrument(route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			label := "unmatched"
			if route != nil {
				if v := route(r); v != "" {
					label = v
				}
			}

			httpInFlight.Inc()
			defer httpInFlight.Dec()
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			status := strconv.Itoa(sw.code)
			httpRequestDuration.WithLabelValues(r.Method, label, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, label, status).Inc()
		})
	}
}

// AuthAttempt counts an authentication attempt.
func AuthAttempt(method, outcome string) {
	authAttempts.WithLabelValues(method, outcome).Inc()
}

// RequestEvent counts a published maintenance request event.
func RequestEvent(eventType string) {
	requestEvents.WithLabelValues(eventType).Inc()
}

// SetReady records the outcome of the latest readiness probe.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// statusWriter: локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
