package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeUpstream    = "upstream_error"
	OutcomeUnavailable = "data_unavailable"
)

var (
	// UpstreamFetches counts raw bar fetches by provider and outcome.
	UpstreamFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoinsight_upstream_fetches_total",
			Help: "Total number of raw bar fetches from market-data providers",
		},
		[]string{"provider", "outcome"},
	)

	// FetchDuration observes raw bar fetch latency.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptoinsight_fetch_duration_seconds",
			Help:    "Duration of raw bar fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// RowsDropped counts raw rows removed during cleaning.
	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoinsight_rows_dropped_total",
			Help: "Raw rows dropped while cleaning provider data",
		},
		[]string{"reason"},
	)

	// CacheLookups counts bar cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoinsight_cache_lookups_total",
			Help: "Bar cache lookups by result",
		},
		[]string{"result"},
	)

	// PredictionCalls counts prediction service calls by coin and outcome.
	PredictionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoinsight_prediction_calls_total",
			Help: "Prediction service calls by coin and outcome",
		},
		[]string{"coin", "outcome"},
	)

	// ServiceReady reports the last health check result per coin (1 ready, 0 not).
	ServiceReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptoinsight_prediction_service_ready",
			Help: "Whether the coin's prediction service passed its last health check",
		},
		[]string{"coin"},
	)

	// HTTPRequests counts dashboard API requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoinsight_http_requests_total",
			Help: "Dashboard API requests by route and status",
		},
		[]string{"route", "status"},
	)
)
