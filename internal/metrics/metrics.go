// Package metrics holds the Prometheus collectors of the storefront service
// and the HTTP middleware that feeds the request metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// OrderTransitions counts successful workflow transitions by kind
	// ("placed", "paid", "delivered").
	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order lifecycle transitions committed.",
		},
		[]string{"transition"},
	)

	// OrderFailures counts failed workflow calls by operation and failure kind.
	OrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "failures_total",
			Help:      "Order workflow failures.",
		},
		[]string{"operation", "kind"},
	)

	TxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "transaction_duration_seconds",
			Help:      "Duration of database transactions in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .5, 1, 5},
		},
		[]string{"outcome"},
	)

	OutboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "messages_total",
			Help:      "Outbox messages processed by result.",
		},
		[]string{"result"},
	)
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		RequestDuration,
		RequestTotal,
		OrderTransitions,
		OrderFailures,
		TxDuration,
		OutboxPublished,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveTx records a finished transaction.
func ObserveTx(outcome string, start time.Time) {
	TxDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// Middleware records request duration and count labelled by the chi route
// pattern, which keeps order ids out of the label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}

		RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		RequestTotal.WithLabelValues(labels...).Inc()
	})
}
