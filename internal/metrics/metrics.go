// Package metrics exposes Prometheus counters and histograms for request
// handling, authentication, and task execution.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "henchman",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled, grouped by route and status code.",
	}, []string{"route", "code"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "henchman",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by route.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300},
	}, []string{"route"})

	authOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "henchman",
		Name:      "auth_outcomes_total",
		Help:      "Authentication attempts grouped by outcome (cache_hit, verified, rejected).",
	}, []string{"outcome"})

	tasksRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "henchman",
		Name:      "tasks_running",
		Help:      "Number of task executions currently in flight.",
	})

	taskRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "henchman",
		Name:      "task_runs_total",
		Help:      "Completed task executions grouped by task name and exit status.",
	}, []string{"task", "exit_status"})
)

func init() {
	registry.MustRegister(requestsTotal, requestDuration, authOutcomes, tasksRunning, taskRunsTotal)
}

// Handler returns an http.Handler serving the registry in Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(route string, code int, duration time.Duration) {
	requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Auth outcome labels, passed to ObserveAuth.
const (
	AuthOutcomeCacheHit = "cache_hit"
	AuthOutcomeVerified = "verified"
	AuthOutcomeRejected = "rejected"
)

// ObserveAuth records the outcome of one authentication attempt.
func ObserveAuth(outcome string) {
	authOutcomes.WithLabelValues(outcome).Inc()
}

// TaskStarted increments the in-flight task gauge; the returned func
// decrements it and records the completed run's exit status. Callers
// should defer the returned func immediately after calling TaskStarted.
func TaskStarted(taskName string) func(exitStatus string) {
	tasksRunning.Inc()
	return func(exitStatus string) {
		tasksRunning.Dec()
		taskRunsTotal.WithLabelValues(taskName, exitStatus).Inc()
	}
}
