package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// unroutedLabel stands in for the route of requests the mux never matched,
// including those rejected earlier by auth or rate limiting.
const unroutedLabel = "unrouted"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetscout_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetscout_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern. Upgraded streams are excluded.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	httpStreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetscout_http_stream_duration_seconds",
			Help:    "Lifetime of upgraded (WebSocket) connections.",
			Buckets: []float64{1, 10, 60, 300, 1800, 3600, 14400},
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpStreamDuration)
}

func observeRequest(method, route string, status int, upgraded bool, elapsed time.Duration) {
	if route == "" {
		route = unroutedLabel
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	if upgraded {
		httpStreamDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		return
	}
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
