package apiclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	clientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imgclass",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the classification service",
		},
		[]string{"endpoint", "status"},
	)

	clientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imgclass",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests to the classification service in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	imageCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imgclass",
			Subsystem: "client",
			Name:      "image_cache_total",
			Help:      "Library image cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(clientRequestsTotal, clientRequestDuration, imageCacheTotal)
}

// statusLabel is the status code, or "error" when no response arrived.
func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
