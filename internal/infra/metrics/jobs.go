package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsSubmittedTotal, jobsProcessedTotal, jobDurationSeconds, queueDepth)
}

var jobsSubmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_submitted_total",
		Help: "Total number of jobs submitted, labeled by type and outcome.",
	},
	[]string{"type", "outcome"}, // 'submitted', 'rejected', 'failed'
)

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Total number of jobs processed by workers, labeled by type and status.",
	},
	[]string{"type", "status"}, // 'completed', 'failed'
)

var jobDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Handler execution time per job type.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	},
	[]string{"type"},
)

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "queue_pending_jobs",
		Help: "Pending job count per queue, sampled at health checks.",
	},
	[]string{"queue"},
)

func IncJobSubmitted(jobType, outcome string) {
	jobsSubmittedTotal.WithLabelValues(norm(jobType), norm(outcome)).Inc()
}

func IncJobProcessed(jobType, status string) {
	jobsProcessedTotal.WithLabelValues(norm(jobType), norm(status)).Inc()
}

func ObserveJobDuration(jobType string, seconds float64) {
	jobDurationSeconds.WithLabelValues(norm(jobType)).Observe(seconds)
}

func SetQueueDepth(queue string, n int64) {
	queueDepth.WithLabelValues(norm(queue)).Set(float64(n))
}

func norm(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "unknown"
	}
	return s
}
