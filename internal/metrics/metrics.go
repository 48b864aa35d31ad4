package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourbase",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"search_type", "table"},
	)

	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourbase",
			Name:      "searches_total",
			Help:      "Total number of searches",
		},
		[]string{"search_type", "table"},
	)

	searchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourbase",
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"search_type", "table"},
	)

	searchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourbase",
			Name:      "search_errors_total",
			Help:      "Total number of failed searcher invocations",
		},
		[]string{"search_type", "table"},
	)
)

func init() {
	prometheus.MustRegister(searchDuration)
	prometheus.MustRegister(searchesTotal)
	prometheus.MustRegister(searchResults)
	prometheus.MustRegister(searchErrorsTotal)
}

// ObserveSearch records one completed search.
func ObserveSearch(searchType, table string, duration time.Duration, results int) {
	searchesTotal.WithLabelValues(searchType, table).Inc()
	searchDuration.WithLabelValues(searchType, table).Observe(duration.Seconds())
	searchResults.WithLabelValues(searchType, table).Observe(float64(results))
}

// SearchErrors counts one failed searcher invocation.
func SearchErrors(searchType, table string) {
	searchErrorsTotal.WithLabelValues(searchType, table).Inc()
}
