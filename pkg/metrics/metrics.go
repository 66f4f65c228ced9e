// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reelvote_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelvote_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	ScoreJobsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reelvote_score_jobs_processed_total",
		Help: "Score jobs applied successfully.",
	})

	ScoreJobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reelvote_score_jobs_failed_total",
		Help: "Score job attempts that failed and were rescheduled.",
	})

	ScoreJobsDead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reelvote_score_jobs_dead_total",
		Help: "Score jobs dead-lettered after exhausting retries.",
	})

	ScoreJobsPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reelvote_score_jobs_pending",
		Help: "Score jobs waiting to be applied.",
	})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequests,
		HTTPDuration,
		ScoreJobsProcessed,
		ScoreJobsFailed,
		ScoreJobsDead,
		ScoreJobsPending,
	)
}
