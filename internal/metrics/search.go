package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "multivec",
			Name:      "search_stage_duration_seconds",
			Help:      "Per-stage search latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // "embed" / "stage1" / "stage2" / "merge"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multivec",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "status"},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multivec",
			Name:      "search_degraded_total",
			Help:      "Searches that fell back to a reduced pipeline",
		},
		[]string{"reason"}, // "stage1_collection_failed" / "rerank_failed"
	)

	RerankCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multivec",
			Name:      "rerank_candidates_total",
			Help:      "Candidates entering exact re-ranking",
		},
		[]string{"collection", "outcome"}, // "scored" / "dropped"
	)

	IngestItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multivec",
			Name:      "ingest_items_total",
			Help:      "Items written to the store",
		},
		[]string{"collection", "status"},
	)

	DeletedItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multivec",
			Name:      "deleted_items_total",
			Help:      "Items removed by document deletion",
		},
		[]string{"collection"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(RerankCandidatesTotal)
	prometheus.MustRegister(IngestItemsTotal)
	prometheus.MustRegister(DeletedItemsTotal)
	searchMetricsRegistered = true
}
