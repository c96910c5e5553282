package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus collectors. A Metrics value is
// always safe to use; registration on an external registry only happens
// when the caller passes one at construction; there are no ambient singletons.
type Metrics struct {
	QueriesTotal  prometheus.Counter
	QueryFailures prometheus.Counter
	RowsScanned   prometheus.Counter
	RowsReturned  prometheus.Counter
	ChunksEmitted prometheus.Counter
	QuerySeconds  prometheus.Histogram
}

// NewMetrics builds the engine collectors and, if reg is non-nil,
// registers them on it.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colonnade",
			Name:      "queries_total",
			Help:      "Queries started.",
		}),
		QueryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colonnade",
			Name:      "query_failures_total",
			Help:      "Queries that ended in an error.",
		}),
		RowsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colonnade",
			Name:      "rows_scanned_total",
			Help:      "Rows visited by table scans, before pushed filters.",
		}),
		RowsReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colonnade",
			Name:      "rows_returned_total",
			Help:      "Rows delivered to callers.",
		}),
		ChunksEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colonnade",
			Name:      "chunks_emitted_total",
			Help:      "DataChunks delivered to callers.",
		}),
		QuerySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "colonnade",
			Name:      "query_duration_seconds",
			Help:      "Wall-clock query duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.QueriesTotal, m.QueryFailures,
			m.RowsScanned, m.RowsReturned, m.ChunksEmitted,
			m.QuerySeconds,
		)
	}
	return m
}
