package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reminddo"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	tasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Tasks written to the store, labelled by recurrence pattern.",
	}, []string{"pattern"})

	plannerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "planner_requests_total",
		Help:      "AI planner calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	calendarFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calendar_fetches_total",
		Help:      "Calendar event fetches by provider and outcome.",
	}, []string{"provider", "outcome"})

	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Background jobs by type and outcome.",
	}, []string{"type", "outcome"})
)

func observeRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordTasksCreated(pattern string, n int) {
	if n <= 0 {
		return
	}
	if pattern == "" {
		pattern = "none"
	}
	tasksCreated.WithLabelValues(pattern).Add(float64(n))
}

func RecordPlannerRequest(provider string, err error) {
	plannerRequests.WithLabelValues(provider, outcome(err)).Inc()
}

func RecordCalendarFetch(provider string, err error) {
	calendarFetches.WithLabelValues(provider, outcome(err)).Inc()
}

func RecordJob(jobType string, err error) {
	jobsProcessed.WithLabelValues(jobType, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RegisterGaugeFunc exposes a value sampled at scrape time, such as cache hit rate or queue depth.
// Registering the same name twice keeps the first registration.
func RegisterGaugeFunc(name, help string, fn func() float64) {
	register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// RegisterCounterFunc exposes a monotonically increasing count kept elsewhere, such as cache hits.
func RegisterCounterFunc(name, help string, fn func() float64) {
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func register(c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}

// PrometheusHandler serves the default registry in the Prometheus text format.
func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
