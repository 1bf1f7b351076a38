package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	useCases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghscribe_use_cases_total",
			Help: "Use case invocations by outcome",
		},
		[]string{"use_case", "outcome"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghscribe_cache_lookups_total",
			Help: "Content cache lookups by stage and result",
		},
		[]string{"stage", "result"},
	)

	fetchedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghscribe_fetched_files_total",
			Help: "Repository files fetched by result",
		},
		[]string{"result"},
	)

	generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghscribe_generations_total",
			Help: "Generation calls by interpreted response kind",
		},
		[]string{"kind"},
	)

	pullRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghscribe_pull_requests_total",
			Help: "Pull request submissions by result",
		},
		[]string{"result"},
	)
)

// UseCase records the outcome of one use case invocation
func UseCase(name, outcome string) {
	useCases.WithLabelValues(name, outcome).Inc()
}

// CacheLookup records a cache hit or miss for stage
func CacheLookup(stage string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(stage, result).Inc()
}

// FetchedFiles records a fetch batch
func FetchedFiles(ok, failed int) {
	fetchedFiles.WithLabelValues("ok").Add(float64(ok))
	fetchedFiles.WithLabelValues("failed").Add(float64(failed))
}

// Generation records one interpreted generation response
func Generation(kind string) {
	generations.WithLabelValues(kind).Inc()
}

// PullRequest records one submission result
func PullRequest(result string) {
	pullRequests.WithLabelValues(result).Inc()
}
