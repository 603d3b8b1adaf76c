// Package metrics holds the Prometheus collectors of the grid service.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridbase/internal/domain"
)

// Metrics groups the collectors registered on one registry. A nil *Metrics
// records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
	// OperationsTotal counts dataset and grid operations by outcome.
	OperationsTotal *prometheus.CounterVec
	// OperationDuration is the latency of dataset and grid operations.
	OperationDuration *prometheus.HistogramVec
	// GridRows observes the number of rows returned per grid page.
	GridRows prometheus.Histogram
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		RequestTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridbase_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridbase_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OperationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridbase_operations_total",
				Help: "Total number of dataset and grid operations",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridbase_operation_duration_seconds",
				Help:    "Dataset and grid operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GridRows: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridbase_grid_rows",
			Help:    "Rows returned per grid page",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000},
		}),
	}
}

// ObserveOperation records one operation that started at start.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveGridRows records the size of a grid page.
func (m *Metrics) ObserveGridRows(n int) {
	if m == nil {
		return
	}
	m.GridRows.Observe(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Outcome classifies err into a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		ident      *domain.IdentifierError
		conflict   *domain.ConflictError
		denied     *domain.AccessDeniedError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &validation), errors.As(err, &ident):
		return "invalid"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &denied):
		return "denied"
	default:
		return "error"
	}
}
