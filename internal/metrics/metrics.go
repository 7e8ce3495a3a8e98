package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Taskhive API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics.
	AuthSuccessesTotal prometheus.Counter
	AuthFailuresTotal  prometheus.Counter

	// Notification metrics.
	NotifyQueueDepth prometheus.GaugeFunc
	NotifySendsTotal *prometheus.CounterVec

	// Rate limiting.
	RateLimitRejectionsTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
// queueDepth reports the notification queue length; pass nil when the
// dispatcher is disabled.
func New(queueDepth func() int) *Metrics {
	reg := prometheus.NewRegistry()

	if queueDepth == nil {
		queueDepth = func() int { return 0 }
	}

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhive_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhive_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhive_auth_successes_total",
			Help: "Total number of successful session authentications.",
		}),

		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhive_auth_failures_total",
			Help: "Total number of failed session authentications.",
		}),

		NotifyQueueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "taskhive_notify_queue_depth",
			Help: "Number of notification emails waiting to be sent.",
		}, func() float64 { return float64(queueDepth()) }),

		NotifySendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhive_notify_sends_total",
			Help: "Total number of notification delivery attempts.",
		}, []string{"status"}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhive_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskhive_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthSuccessesTotal,
		m.AuthFailuresTotal,
		m.NotifyQueueDepth,
		m.NotifySendsTotal,
		m.RateLimitRejectionsTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// ObserveAuth records one session authentication attempt.
func (m *Metrics) ObserveAuth(ok bool) {
	if ok {
		m.AuthSuccessesTotal.Inc()
	} else {
		m.AuthFailuresTotal.Inc()
	}
}

// ObserveNotifySend records one notification delivery attempt.
func (m *Metrics) ObserveNotifySend(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.NotifySendsTotal.WithLabelValues(status).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection() {
	m.RateLimitRejectionsTotal.Inc()
}
