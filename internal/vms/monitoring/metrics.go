package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vms_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Metrics engine counters
	recomputeCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vms_metric_recompute_cycles_total",
			Help: "Total number of vendor metric recompute cycles",
		},
		[]string{"outcome"},
	)

	snapshotsAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vms_performance_snapshots_total",
			Help: "Total number of historical performance snapshots appended",
		},
	)
)

// RecordRecompute 记录一次指标重算；carryForwardOnly 表示本轮四项指标全部结转
func RecordRecompute(carryForwardOnly bool) {
	outcome := "computed"
	if carryForwardOnly {
		outcome = "carry_forward_only"
	}
	recomputeCyclesTotal.WithLabelValues(outcome).Inc()
	snapshotsAppendedTotal.Inc()
}

// Middleware HTTP请求计数与耗时统计
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics端点
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
