package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(batchRunsTotal, postingsProcessedTotal, toolsDetectedTotal,
		batchJobsPerRun, classifierLatencyMs)
}

var batchRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batch_runs_total",
		Help: "Batch run attempts by outcome (completed/busy/store_error).",
	},
	[]string{"outcome"},
)

var postingsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postings_processed_total",
		Help: "Postings processed by outcome (tool_detected/no_tool/analysis_error/dedup_error).",
	},
	[]string{"outcome"},
)

var toolsDetectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tools_detected_total",
		Help: "Positive verdicts by detected tool.",
	},
	[]string{"tool"},
)

var batchJobsPerRun = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "batch_jobs_per_run",
		Help:    "Postings handled per batch run.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	},
)

var classifierLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "classifier_call_latency_ms",
		Help:    "Classifier call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000},
	},
	[]string{"success"},
)

func IncBatchRun(outcome string) {
	batchRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncPostingProcessed(outcome string) {
	postingsProcessedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncToolDetected(tool string) {
	toolsDetectedTotal.WithLabelValues(norm(tool)).Inc()
}

func ObserveBatch(jobsProcessed int) {
	batchJobsPerRun.Observe(float64(jobsProcessed))
}

func ObserveClassifierCall(d time.Duration, success bool) {
	classifierLatencyMs.WithLabelValues(strconv.FormatBool(success)).
		Observe(float64(d / time.Millisecond))
}
