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
	decmsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decms_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	decmsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decms_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	decmsIntakesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decms_evidence_intakes_total",
		Help: "Total evidence items taken into custody.",
	})

	decmsTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decms_transfers_total",
		Help: "Total custody transfer attempts by outcome.",
	}, []string{"outcome"})

	decmsChainVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decms_chain_verifications_total",
		Help: "Total chain verification runs by result.",
	}, []string{"result"})
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

		decmsRequestsTotal.WithLabelValues(method, path, status).Inc()
		decmsRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordIntake records one successful evidence intake.
func RecordIntake() {
	decmsIntakesTotal.Inc()
}

// RecordTransfer records a transfer attempt outcome ("ok" or "rejected").
func RecordTransfer(ok bool) {
	if ok {
		decmsTransfersTotal.WithLabelValues("ok").Inc()
	} else {
		decmsTransfersTotal.WithLabelValues("rejected").Inc()
	}
}

// RecordVerification records a chain verification result.
func RecordVerification(valid bool) {
	if valid {
		decmsChainVerificationsTotal.WithLabelValues("valid").Inc()
	} else {
		decmsChainVerificationsTotal.WithLabelValues("invalid").Inc()
	}
}
