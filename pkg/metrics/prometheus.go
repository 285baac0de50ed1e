package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	queryDuration    *prometheus.HistogramVec
	queryRecords     *prometheus.HistogramVec
	queryBytes       *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	partialRecovered *prometheus.CounterVec
	partialAttempted *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		queryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlequery_query_duration_seconds",
				Help:    "Duration of market data queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"query_type", "symbol"},
		),
		queryRecords: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlequery_query_records",
				Help:    "Number of records returned per query",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{"query_type"},
		),
		queryBytes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlequery_query_bytes_total",
				Help: "Total bytes read from the object store",
			},
			[]string{"query_type"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlequery_cache_hits_total",
				Help: "Total cache hits by query type",
			},
			[]string{"query_type"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlequery_cache_misses_total",
				Help: "Total cache misses by query type",
			},
			[]string{"query_type"},
		),
		partialRecovered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlequery_partitions_recovered_total",
				Help: "Partition files read successfully during partial recovery",
			},
			[]string{"symbol"},
		),
		partialAttempted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlequery_partitions_attempted_total",
				Help: "Partition files attempted during partial recovery",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlequery_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordQuery records result size and latency for one completed query.
func (r *Recorder) RecordQuery(queryType, symbol string, duration time.Duration, records int, bytes int64) {
	r.queryDuration.WithLabelValues(queryType, symbol).Observe(duration.Seconds())
	r.queryRecords.WithLabelValues(queryType).Observe(float64(records))
	if bytes > 0 {
		r.queryBytes.WithLabelValues(queryType).Add(float64(bytes))
	}
}

// RecordCacheHit records a cache hit.
func (r *Recorder) RecordCacheHit(queryType string) {
	r.cacheHits.WithLabelValues(queryType).Inc()
}

// RecordCacheMiss records a cache miss.
func (r *Recorder) RecordCacheMiss(queryType string) {
	r.cacheMisses.WithLabelValues(queryType).Inc()
}

// RecordPartialRecovery records how many partition reads survived a degraded query.
func (r *Recorder) RecordPartialRecovery(symbol string, attempted, recovered int) {
	r.partialAttempted.WithLabelValues(symbol).Add(float64(attempted))
	r.partialRecovered.WithLabelValues(symbol).Add(float64(recovered))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
