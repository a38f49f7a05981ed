package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsTotal counts webhook transactions by type and outcome
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_watcher_transactions_total",
			Help: "Total number of webhook transactions processed",
		},
		[]string{"type", "outcome"},
	)

	// MalformedItemsTotal counts payload items and legs skipped during decode
	MalformedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_watcher_malformed_items_total",
			Help: "Total number of malformed webhook items or legs skipped",
		},
		[]string{"granularity"},
	)

	// NotificationsTotal counts delivery attempts per sink
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_watcher_notifications_total",
			Help: "Total number of notifications delivered per sink",
		},
		[]string{"sink", "status"},
	)

	// UpstreamRetriesTotal counts retried upstream calls
	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_watcher_upstream_retries_total",
			Help: "Total number of retried upstream calls",
		},
		[]string{"operation"},
	)

	// PortfolioFetchDuration observes live portfolio fetch latency
	PortfolioFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wallet_watcher_portfolio_fetch_duration_seconds",
			Help:    "Time taken to fetch a live portfolio",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// MetadataLookupsTotal counts token metadata resolutions by source
	MetadataLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_watcher_metadata_lookups_total",
			Help: "Token metadata lookups by result source",
		},
		[]string{"source"},
	)
)
