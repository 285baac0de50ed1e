package repository

import (
	"context"
	"io"
	"time"

	"CandleQuery/internal/domain/models"
)

// ObjectInfo describes one object in the store.
type ObjectInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// ObjectStore abstracts the physical blob store holding the partition files.
// Bucket and credentials are owned by the implementation, not the callers.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key string, data []byte) error
	Bucket() string
}

// QueryEngine executes columnar queries against enumerated partition files.
// Implementations absorb missing-partition errors (returning whatever union of
// data was recoverable, sorted by unix time) and propagate every other error
// class unmodified.
type QueryEngine interface {
	// QueryRaw projects the OHLCV columns with symbol and unix-time filters
	// and no aggregation, ordered ascending by unix time.
	QueryRaw(ctx context.Context, paths []string, symbol string, startUnix, endUnix int64) ([]models.OHLCVRecord, error)

	// QueryAggregated buckets rows by floor(unix_time/interval)*interval and
	// emits one OHLCV record per bucket. An interval of YearIntervalSeconds
	// buckets by calendar year anchored at the year's first row instead.
	QueryAggregated(ctx context.Context, paths []string, symbol string, startUnix, endUnix, intervalSeconds int64) ([]models.OHLCVRecord, error)

	// QueryMultiSymbol resolves several symbols in one batch, falling back to
	// per-symbol queries when the batch hits missing partitions.
	QueryMultiSymbol(ctx context.Context, pathsBySymbol map[string][]string, startUnix, endUnix, intervalSeconds int64) (map[string][]models.OHLCVRecord, error)

	// QueryProjected restricts the read to the named columns plus the
	// mandatory filter columns (symbol, unix_time).
	QueryProjected(ctx context.Context, paths []string, symbol string, startUnix, endUnix int64, columns []string) ([]models.OHLCVRecord, error)

	Close() error
}

// PathPlanner enumerates the partition file paths covering a date range.
type PathPlanner interface {
	Plan(symbol string, startDate, endDate time.Time, source SourceResolution) ([]string, error)
}

// MarketDataCache is the two-tier result cache keyed by symbol, timeframe and
// unix range. Implementations never fail a request on cache trouble.
type MarketDataCache interface {
	GetOHLCV(ctx context.Context, symbol string, tf Timeframe, startUnix, endUnix int64) ([]models.OHLCVRecord, bool)
	SetOHLCV(ctx context.Context, symbol string, tf Timeframe, startUnix, endUnix int64, data []models.OHLCVRecord)
}

// Metrics is the sink for query observability. No core behavior depends on
// its output; any implementation satisfying this contract may be substituted.
type Metrics interface {
	RecordQuery(queryType, symbol string, duration time.Duration, records int, bytes int64)
	RecordCacheHit(queryType string)
	RecordCacheMiss(queryType string)
	RecordPartialRecovery(symbol string, attempted, recovered int)
	RecordError(kind string)
}
