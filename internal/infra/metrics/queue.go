package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(queueJobsTotal, queueJobsFinishedTotal) }

var queueJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_jobs_total",
		Help: "Queue job lifecycle events (enqueued/retried/cancelled).",
	},
	[]string{"event"},
)

var queueJobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_jobs_finished_total",
		Help: "Queue jobs finished by the runner, labeled by status and type.",
	},
	[]string{"status", "type"},
)

func IncQueueJob(event string) {
	queueJobsTotal.WithLabelValues(norm(event)).Inc()
}

func IncQueueJobFinished(status, jobType string) {
	queueJobsFinishedTotal.WithLabelValues(norm(status), norm(jobType)).Inc()
}
