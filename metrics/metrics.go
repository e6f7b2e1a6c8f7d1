package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retail_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retail_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	SaleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retail_sale_operations_total",
			Help: "Total number of sale workflow operations",
		},
		[]string{"operation", "result"},
	)

	InsufficientStockTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retail_insufficient_stock_total",
			Help: "Total number of sales rejected for insufficient stock",
		},
	)
)

// RecordSaleOperation increments the counter for a sale workflow operation.
func RecordSaleOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SaleOperationsTotal.WithLabelValues(operation, result).Inc()
}

// TrackDuration records an HTTP request observation.
func TrackDuration(method string, path string, status string, start time.Time) {
	duration := time.Since(start).Seconds()
	HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
}
