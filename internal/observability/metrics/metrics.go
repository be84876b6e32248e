package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics tracks request counts and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workhive_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workhive_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// GinMiddleware records per-request metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// SchedulerMetrics tracks reminder scheduler activity.
type SchedulerMetrics struct {
	ticks    *prometheus.CounterVec
	sent     *prometheus.CounterVec
	errors   prometheus.Counter
	duration prometheus.Histogram
}

func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{
		ticks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workhive_reminder_ticks_total",
			Help: "Reminder scheduler ticks by outcome.",
		}, []string{"outcome"}),
		sent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workhive_reminder_emails_total",
			Help: "Reminder emails sent by stage.",
		}, []string{"stage"}),
		errors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workhive_reminder_errors_total",
			Help: "Reminder dispatch errors.",
		}),
		duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "workhive_reminder_tick_duration_seconds",
			Help:    "Reminder tick duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *SchedulerMetrics) TickStarted() {
	if m != nil {
		m.ticks.WithLabelValues("started").Inc()
	}
}

func (m *SchedulerMetrics) TickCoalesced() {
	if m != nil {
		m.ticks.WithLabelValues("coalesced").Inc()
	}
}

func (m *SchedulerMetrics) ReminderSent(stage string) {
	if m != nil {
		m.sent.WithLabelValues(stage).Inc()
	}
}

func (m *SchedulerMetrics) ReminderError() {
	if m != nil {
		m.errors.Inc()
	}
}

func (m *SchedulerMetrics) ObserveTick(d time.Duration) {
	if m != nil {
		m.duration.Observe(d.Seconds())
	}
}
