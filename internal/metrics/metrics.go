// Package metrics holds the process-wide Prometheus collectors. They register
// on the default registry, which /metrics serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerWrites counts record-or-update calls by outcome and rejection reason.
	LedgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maziwa_ledger_writes_total",
		Help: "Record-or-update calls by outcome and rejection reason",
	}, []string{"outcome", "reason"})

	LedgerWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "maziwa_ledger_write_duration_seconds",
		Help:    "Record-or-update latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})

	// RollupRequests counts engine calls by how they were served.
	RollupRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maziwa_rollup_requests_total",
		Help: "Rollup requests by result (snapshot, computed, shared, error)",
	}, []string{"result"})

	RollupComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maziwa_rollup_compute_duration_seconds",
		Help:    "Time to list and fold events for one rollup",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"granularity"})

	// CacheReads counts reads by cache name and the state returned.
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maziwa_cache_reads_total",
		Help: "Cache reads by cache and returned entry state",
	}, []string{"cache", "state"})

	// CacheFetches counts fetch completions by result (success, failure, discarded).
	CacheFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maziwa_cache_fetches_total",
		Help: "Cache fetches by cache and result",
	}, []string{"cache", "result"})

	CacheInflight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "maziwa_cache_inflight_fetches",
		Help: "Fetches currently in flight per cache",
	}, []string{"cache"})

	WarmerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maziwa_warmer_runs_total",
		Help: "Rollup warm passes by result",
	}, []string{"result"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maziwa_upstream_requests_total",
		Help: "Upstream API calls by operation and result",
	}, []string{"operation", "result"})

	// DirectoryStepBacks counts pages that came back empty and were retried one page earlier.
	DirectoryStepBacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maziwa_directory_step_backs_total",
		Help: "Empty directory pages that stepped back to an earlier page",
	})
)
