// Package metrics provides Prometheus metrics for the bptree core
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the tree
type Metrics struct {
	// Structural rebalance metrics
	SplitsTotal      prometheus.Counter
	MergesTotal      prometheus.Counter
	DistributesTotal prometheus.Counter
	RemoveRootsTotal prometheus.Counter

	// Mutation metrics
	InsertsTotal prometheus.Counter
	DeletesTotal prometheus.Counter

	// Read path metrics
	SearchesTotal   prometheus.Counter
	RangeScansTotal prometheus.Counter
	FindsTotal      prometheus.Counter

	OperationDuration *prometheus.HistogramVec

	// Tree shape gauges
	TreeSize prometheus.Gauge

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.SplitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_splits_total",
			Help: "Total number of node split rebalances",
		},
	)

	m.MergesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_merges_total",
			Help: "Total number of node merge rebalances",
		},
	)

	m.DistributesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_distributes_total",
			Help: "Total number of sibling distribute rebalances",
		},
	)

	m.RemoveRootsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_remove_roots_total",
			Help: "Total number of root-removal rebalances",
		},
	)

	m.InsertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_inserts_total",
			Help: "Total number of key/value inserts",
		},
	)

	m.DeletesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_deletes_total",
			Help: "Total number of key deletes",
		},
	)

	m.SearchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_searches_total",
			Help: "Total number of point lookups",
		},
	)

	m.RangeScansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_range_scans_total",
			Help: "Total number of paginated range scans",
		},
	)

	m.FindsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bptree_finds_total",
			Help: "Total number of predicate-based finds",
		},
	)

	m.OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bptree_operation_duration_seconds",
			Help:    "Duration of tree operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.TreeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bptree_size",
			Help: "Current number of keys stored in the tree",
		},
	)

	m.ServerUptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bptree_uptime_seconds",
			Help: "Process uptime in seconds",
		},
	)

	go m.updateUptime()

	return m
}

// updateUptime periodically updates the process uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
	}
}

// RecordSplit records a node split rebalance
func (m *Metrics) RecordSplit() { m.SplitsTotal.Inc() }

// RecordMerge records a node merge rebalance
func (m *Metrics) RecordMerge() { m.MergesTotal.Inc() }

// RecordDistribute records a sibling distribute rebalance
func (m *Metrics) RecordDistribute() { m.DistributesTotal.Inc() }

// RecordRemoveRoot records a root-removal rebalance
func (m *Metrics) RecordRemoveRoot() { m.RemoveRootsTotal.Inc() }

// RecordInsert records a key/value insert
func (m *Metrics) RecordInsert() { m.InsertsTotal.Inc() }

// RecordDelete records a key delete
func (m *Metrics) RecordDelete() { m.DeletesTotal.Inc() }

// RecordSearch records a point lookup
func (m *Metrics) RecordSearch() { m.SearchesTotal.Inc() }

// RecordRangeScan records a paginated range scan
func (m *Metrics) RecordRangeScan() { m.RangeScansTotal.Inc() }

// RecordFind records a predicate-based find
func (m *Metrics) RecordFind() { m.FindsTotal.Inc() }

// SetSize updates the tree size gauge
func (m *Metrics) SetSize(size uint64) { m.TreeSize.Set(float64(size)) }

// ObserveOperation records how long a named operation took
func (m *Metrics) ObserveOperation(operation string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
