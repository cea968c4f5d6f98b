package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Panel lifecycle Prometheus metrics.
var (
	PanelRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weightedterms",
			Name:      "panel_refresh_total",
			Help:      "Panel data refresh cycles by outcome",
		},
		[]string{"panel", "status"}, // "ok" / "error" / "skipped"
	)

	PanelStaleResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weightedterms",
			Name:      "panel_stale_responses_total",
			Help:      "Search responses discarded because a newer request was issued",
		},
		[]string{"panel"},
	)

	WeightResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weightedterms",
			Name:      "weight_resolutions_total",
			Help:      "Weight table resolutions by origin",
		},
		[]string{"panel", "origin"}, // manual / file / fallback / none
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "weightedterms",
			Name:      "search_duration_seconds",
			Help:      "Terms aggregation search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"panel"},
	)

	WeightsCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weightedterms",
			Name:      "weights_cache_total",
			Help:      "Weights file cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	WeightsFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weightedterms",
			Name:      "weights_fetch_total",
			Help:      "Weights file HTTP fetches by status",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var registerPanelOnce sync.Once

// RegisterPanelMetrics registers the panel metrics. Safe to call more than once.
func RegisterPanelMetrics() {
	registerPanelOnce.Do(func() {
		prometheus.MustRegister(
			PanelRefreshTotal,
			PanelStaleResponsesTotal,
			WeightResolutionsTotal,
			SearchDuration,
			WeightsCacheTotal,
			WeightsFetchTotal,
		)
	})
}
