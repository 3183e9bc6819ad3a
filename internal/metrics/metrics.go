// Package metrics exposes Prometheus collectors for store operations and
// event publishing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"billease/internal/core"
)

const namespace = "billease"

// Result label values.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultNotFound    = "not_found"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	events        *prometheus.CounterVec
}

// New registers the collectors on a private registry, so tests can build
// as many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Record store operations by operation, mode and result.",
		}, []string{"operation", "mode", "result"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Latency of record store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "mode"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Record events handed to the broker by type and result.",
		}, []string{"type", "result"}),
	}
	m.registry.MustRegister(
		m.storeOps,
		m.storeDuration,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStoreOp records one store call that started at start.
func (m *Metrics) ObserveStoreOp(operation, mode string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(operation, mode, Classify(err)).Inc()
	m.storeDuration.WithLabelValues(operation, mode).Observe(time.Since(start).Seconds())
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.events.WithLabelValues(eventType, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Classify maps an error to a result label.
func Classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, core.ErrInvalidInput):
		return ResultInvalid
	case errors.Is(err, core.ErrRecordNotFound):
		return ResultNotFound
	case errors.Is(err, core.ErrBackendUnavailable):
		return ResultUnavailable
	default:
		return ResultError
	}
}
