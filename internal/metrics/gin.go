package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumestudio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resumestudio",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "当前正在处理的 HTTP 请求数量。",
		},
	)

	viewConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumestudio",
			Subsystem: "http",
			Name:      "view_conflicts_total",
			Help:      "请求与当前视图不符而被拒绝的次数。",
		},
		[]string{"route"},
	)
)

// GinMiddleware 采集请求耗时与并发数。未匹配路由统一记为 "unmatched"；websocket 长连接不计耗时。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		if c.IsWebsocket() {
			return
		}
		requestDuration.WithLabelValues(
			c.Request.Method,
			routeLabel(c),
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// RecordViewConflict 记录一次视图不符的拒绝。
func RecordViewConflict(c *gin.Context) {
	viewConflictsTotal.WithLabelValues(routeLabel(c)).Inc()
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
