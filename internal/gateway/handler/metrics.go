package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpgw_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcpgw_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	gatewayUpstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpgw_upstream_retries_total",
		Help: "Total upstream call retries by operation.",
	}, []string{"op"})

	gatewayUpstreamFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpgw_upstream_faults_total",
		Help: "Total classified upstream faults by kind.",
	}, []string{"kind"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		gatewayRequestsTotal.WithLabelValues(method, path, status).Inc()
		gatewayRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordUpstreamRetry records one retry of an upstream operation.
func RecordUpstreamRetry(op string) {
	gatewayUpstreamRetriesTotal.WithLabelValues(op).Inc()
}

// RecordUpstreamFault records a classified upstream fault.
func RecordUpstreamFault(kind string) {
	gatewayUpstreamFaultsTotal.WithLabelValues(kind).Inc()
}
