package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dedupResolutionsTotal, mergesTotal) }

var dedupResolutionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dedup_resolutions_total",
		Help: "Company resolutions by outcome (new/duplicate).",
	},
	[]string{"outcome"},
)

var mergesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "company_merges_total",
		Help: "Duplicate merge attempts by outcome (merged/failed).",
	},
	[]string{"outcome"},
)

func IncDedupResolution(outcome string) {
	dedupResolutionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncMerge(outcome string) {
	mergesTotal.WithLabelValues(norm(outcome)).Inc()
}
