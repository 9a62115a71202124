// Package metrics holds the prometheus collectors for the farm poller.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "farm_poller"

var (
	// FetchTotal counts finished fetches by resource kind and result (ok, error, timeout, discarded).
	FetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_total",
		Help:      "Finished farm data fetches by resource kind and result.",
	}, []string{"kind", "result"})

	// FetchDuration observes fetch latency by resource kind.
	FetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Farm data fetch latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// DroppedTicks counts ticks skipped because the key was still fetching.
	DroppedTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_ticks_total",
		Help:      "Refresh ticks dropped while a fetch for the same key was in flight.",
	}, []string{"kind"})

	// StaleWrites counts commits rejected by the sequence guard.
	StaleWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_writes_total",
		Help:      "Snapshot writes discarded because a later fetch was already committed.",
	}, []string{"kind"})

	// ActiveKeys reports the number of scheduled fetch keys.
	ActiveKeys = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_keys",
		Help:      "Fetch keys currently scheduled.",
	})

	// RPCBatchTotal counts JSON-RPC batch calls by chain and result.
	RPCBatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_batch_total",
		Help:      "JSON-RPC batch calls issued to chain nodes.",
	}, []string{"chain", "result"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry. Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(FetchTotal, FetchDuration, DroppedTicks, StaleWrites, ActiveKeys, RPCBatchTotal)
	})
}
