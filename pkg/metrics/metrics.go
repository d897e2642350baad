// Package metrics 暴露 Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teamflow"

var (
	// Sessions 当前 WebSocket 连接数
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_sessions",
		Help:      "Number of live WebSocket sessions.",
	})

	// EventsReceived 按事件类型统计的入站事件
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_events_received_total",
		Help:      "Inbound socket events by type.",
	}, []string{"type"})

	// EventsDelivered 投递到连接发送队列的出站事件
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_events_delivered_total",
		Help:      "Outbound events enqueued to sessions.",
	})

	// SlowClientDrops 因发送缓冲已满而断开的连接
	SlowClientDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_slow_client_drops_total",
		Help:      "Sessions closed because their send buffer was full.",
	})

	// HandlerErrors 事件处理失败次数
	HandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_handler_errors_total",
		Help:      "Socket handler failures by event type.",
	}, []string{"type"})

	// HandlerDuration 事件处理耗时
	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ws_handler_duration_seconds",
		Help:      "Socket handler latency by event type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type"})

	// MessagesPosted 成功发送的消息数
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_posted_total",
		Help:      "Messages persisted and broadcast.",
	})

	// HTTPRequests REST 请求数，route 为注册的路由模板
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration REST 请求耗时
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Middleware 记录请求数与耗时；未匹配路由统一计为 unmatched，避免标签基数失控
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 路由
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
