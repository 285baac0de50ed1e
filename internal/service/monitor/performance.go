package monitor

import (
	"sync"
	"time"

	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/logger"
)

// queryStats are running totals for one query type.
type queryStats struct {
	Queries   int64
	Duration  time.Duration
	Records   int64
	DataBytes int64
}

// TypeSummary is the per-query-type view in a Summary.
type TypeSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	AvgRecords    float64 `json:"avg_records"`
	TotalDataMB   float64 `json:"total_data_mb"`
}

// Summary is an aggregate snapshot of everything recorded so far.
type Summary struct {
	CacheHits      int64                  `json:"cache_hits"`
	CacheMisses    int64                  `json:"cache_misses"`
	HitRatePercent float64                `json:"hit_rate_percent"`
	QueryTypes     map[string]TypeSummary `json:"query_types"`
}

// PerformanceMonitor keeps in-process running totals per query type, and
// forwards observations to the metrics sink. Nothing in the request path
// depends on its output.
type PerformanceMonitor struct {
	mu      sync.Mutex
	stats   map[string]*queryStats
	hits    int64
	misses  int64
	partial map[string]int64 // symbol -> partitions lost to recovery

	log  *logger.Logger
	sink repository.Metrics
	now  func() time.Time
}

// Option configures the monitor.
type Option func(*PerformanceMonitor)

// WithClock sets the time source used for query durations.
func WithClock(now func() time.Time) Option {
	return func(m *PerformanceMonitor) {
		m.now = now
	}
}

// New creates a performance monitor. sink may be nil.
func New(log *logger.Logger, sink repository.Metrics, opts ...Option) *PerformanceMonitor {
	m := &PerformanceMonitor{
		stats:   make(map[string]*queryStats),
		partial: make(map[string]int64),
		log:     log,
		sink:    sink,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tracking is an in-flight query observation.
type Tracking struct {
	queryType string
	symbol    string
	started   time.Time
	monitor   *PerformanceMonitor
}

// StartQuery begins tracking one query.
func (m *PerformanceMonitor) StartQuery(queryType, symbol string) *Tracking {
	return &Tracking{
		queryType: queryType,
		symbol:    symbol,
		started:   m.now(),
		monitor:   m,
	}
}

// Complete finishes the observation and records totals.
func (t *Tracking) Complete(records int, cacheHit bool, dataBytes int64) {
	m := t.monitor
	duration := m.now().Sub(t.started)

	m.mu.Lock()
	if cacheHit {
		m.hits++
	} else {
		m.misses++
	}
	st, ok := m.stats[t.queryType]
	if !ok {
		st = &queryStats{}
		m.stats[t.queryType] = st
	}
	st.Queries++
	st.Duration += duration
	st.Records += int64(records)
	st.DataBytes += dataBytes
	m.mu.Unlock()

	if m.sink != nil {
		if cacheHit {
			m.sink.RecordCacheHit(t.queryType)
		} else {
			m.sink.RecordCacheMiss(t.queryType)
		}
		m.sink.RecordQuery(t.queryType, t.symbol, duration, records, dataBytes)
	}

	m.log.Debug("query completed",
		logger.String("query_type", t.queryType),
		logger.String("symbol", t.symbol),
		logger.Duration("duration", duration),
		logger.Int("records", records),
		logger.Bool("cache_hit", cacheHit),
	)
}

// RecordPartialRecovery notes partitions lost during a degraded query.
func (m *PerformanceMonitor) RecordPartialRecovery(symbol string, attempted, recovered int) {
	m.mu.Lock()
	m.partial[symbol] += int64(attempted - recovered)
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.RecordPartialRecovery(symbol, attempted, recovered)
	}
}

// CacheHitRate returns the hit percentage across all recorded queries.
func (m *PerformanceMonitor) CacheHitRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := m.hits + m.misses
	if total == 0 {
		return 0
	}
	return float64(m.hits) / float64(total) * 100
}

// GetSummary snapshots everything recorded so far.
func (m *PerformanceMonitor) GetSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		CacheHits:   m.hits,
		CacheMisses: m.misses,
		QueryTypes:  make(map[string]TypeSummary, len(m.stats)),
	}
	if total := m.hits + m.misses; total > 0 {
		s.HitRatePercent = float64(m.hits) / float64(total) * 100
	}

	for queryType, st := range m.stats {
		if st.Queries == 0 {
			continue
		}
		s.QueryTypes[queryType] = TypeSummary{
			TotalQueries:  st.Queries,
			AvgDurationMs: float64(st.Duration.Milliseconds()) / float64(st.Queries),
			AvgRecords:    float64(st.Records) / float64(st.Queries),
			TotalDataMB:   float64(st.DataBytes) / (1024 * 1024),
		}
	}
	return s
}

// Reset clears all running totals.
func (m *PerformanceMonitor) Reset() {
	m.mu.Lock()
	m.stats = make(map[string]*queryStats)
	m.partial = make(map[string]int64)
	m.hits = 0
	m.misses = 0
	m.mu.Unlock()

	m.log.Info("performance metrics reset")
}
