package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IconResolutions counts resolve/refresh outcomes (hit|fetched|synthesized|kept|rejected|failed).
	IconResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitedir_icon_resolutions_total",
			Help: "Icon resolutions by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// IconSourceAttempts counts pipeline candidate attempts by source and result (ok|timeout|status|...).
	IconSourceAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitedir_icon_source_attempts_total",
			Help: "Icon source candidate attempts",
		},
		[]string{"source", "result"},
	)

	// IconCacheWriteFailures counts icons served without being cached.
	IconCacheWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitedir_icon_cache_write_failures_total",
			Help: "Icon cache writes that failed after retry",
		},
	)

	// DocumentMutations counts CAS mutations by result (ok|conflict|error).
	DocumentMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitedir_document_mutations_total",
			Help: "Document read-modify-write cycles",
		},
		[]string{"result"},
	)

	// DocumentMutationAttempts measures how many rounds a mutation needed.
	DocumentMutationAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitedir_document_mutation_attempts",
			Help:    "Read-apply-write rounds per mutation",
			Buckets: []float64{1, 2, 3, 4, 6, 8},
		},
	)

	// HTTPRequests counts served requests by chi route pattern, method and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitedir_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitedir_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// HTTPRejections counts requests refused by a guard (cidr|host|rate).
	HTTPRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitedir_http_rejections_total",
			Help: "Requests refused by access guards",
		},
		[]string{"reason"},
	)
)
