// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the vendor clients and the services.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	VendorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_requests_total",
			Help: "Total number of calls to vendor APIs",
		},
		[]string{"vendor", "endpoint", "status"},
	)

	StatementsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owner_statements_generated_total",
			Help: "Owner statements computed, by revenue source",
		},
		[]string{"revenue_source"},
	)
)

// ObserveVendor records one vendor call. A zero status means the request
// never got a response.
func ObserveVendor(vendor, endpoint string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	VendorRequests.WithLabelValues(vendor, endpoint, label).Inc()
}
