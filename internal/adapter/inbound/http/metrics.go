package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sandbox server's Prometheus metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RecordOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restprovider",
				Subsystem: "sandbox",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served by the sandbox backend",
			},
			[]string{"method", "code"}, // code=2xx/4xx/5xx
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "restprovider",
				Subsystem: "sandbox",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RecordOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restprovider",
				Subsystem: "sandbox",
				Name:      "record_operations_total",
				Help:      "Record operations by kind and outcome",
			},
			[]string{"operation", "result"}, // operation=list/get/create/update/delete, result=ok/error
		),
	}
}

func (m *Metrics) recordOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RecordOperations.WithLabelValues(op, result).Inc()
}
