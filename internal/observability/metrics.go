package observability

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API client metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "Latency of storefront API calls in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "Total storefront API calls by outcome",
		},
		[]string{"method", "route", "outcome"},
	)

	CSRFBootstrapTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_csrf_bootstrap_total",
			Help: "CSRF token bootstrap requests by result",
		},
		[]string{"result"},
	)

	// State store metrics
	CartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart store operations by result",
		},
		[]string{"operation", "result"},
	)

	// Fake API server metrics
	FakeAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fakeapi_http_request_duration_seconds",
			Help:    "Fake storefront API request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route", "status"},
	)

	FakeAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakeapi_http_requests_total",
			Help: "Total fake storefront API requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RouteLabel reduces a request path to a low-cardinality label: the query
// string is dropped and numeric segments become {id}.
func RouteLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
