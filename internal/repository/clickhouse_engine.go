package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	pkgch "CandleQuery/pkg/clickhouse"
	"CandleQuery/pkg/logger"
)

// S3Location tells the engine how to address partition files through the
// s3() table function.
type S3Location struct {
	Endpoint  string // host:port or full URL of the S3-compatible store
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func (l S3Location) url(path string) string {
	endpoint := l.Endpoint
	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if l.UseSSL {
			scheme = "https"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(endpoint, "/"), l.Bucket, path)
}

// ClickHouseEngine executes OHLCV queries by pushing aggregation into
// ClickHouse, reading partition files remotely via the s3() table function.
// Symbols and unix bounds are bound as query parameters; only internally
// constructed paths are interpolated, and those are escaped.
type ClickHouseEngine struct {
	db  *sql.DB
	loc S3Location
	log *logger.Logger

	metrics repository.Metrics
}

// NewClickHouseEngine creates a pushdown query engine.
func NewClickHouseEngine(client *pkgch.Client, loc S3Location, log *logger.Logger, metrics repository.Metrics) *ClickHouseEngine {
	return &ClickHouseEngine{db: client.DB(), loc: loc, log: log, metrics: metrics}
}

func (e *ClickHouseEngine) QueryRaw(ctx context.Context, paths []string, symbol string, startUnix, endUnix int64) ([]models.OHLCVRecord, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
        SELECT symbol, unix_time, open, high, low, close, volume
        FROM %s
        WHERE symbol = ? AND unix_time >= ? AND unix_time <= ?
        ORDER BY unix_time ASC
    `, e.source(paths))

	rows, err := e.queryRecords(ctx, query, symbol, startUnix, endUnix)
	if err != nil {
		if !isMissingObject(err) {
			return nil, fmt.Errorf("raw query: %w", err)
		}
		return e.recoverPerPath(ctx, paths, symbol, func(path string) ([]models.OHLCVRecord, error) {
			single := fmt.Sprintf(`
                SELECT symbol, unix_time, open, high, low, close, volume
                FROM %s
                WHERE symbol = ? AND unix_time >= ? AND unix_time <= ?
                ORDER BY unix_time ASC
            `, e.source([]string{path}))
			return e.queryRecords(ctx, single, symbol, startUnix, endUnix)
		})
	}
	return rows, nil
}

func (e *ClickHouseEngine) QueryAggregated(ctx context.Context, paths []string, symbol string, startUnix, endUnix, intervalSeconds int64) ([]models.OHLCVRecord, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	build := func(src string) (string, []interface{}) {
		if intervalSeconds == repository.YearIntervalSeconds {
			q := fmt.Sprintf(`
                SELECT symbol, first_ts AS unix_time,
                       argMin(open, unix_time) AS open,
                       max(high) AS high,
                       min(low) AS low,
                       argMax(close, unix_time) AS close,
                       sum(volume) AS volume
                FROM (
                    SELECT symbol, unix_time, open, high, low, close, volume,
                           toYear(toDateTime(unix_time)) AS year_bucket,
                           min(unix_time) OVER (PARTITION BY toYear(toDateTime(unix_time))) AS first_ts
                    FROM %s
                    WHERE symbol = ?
                      AND toYear(toDateTime(unix_time)) >= toYear(toDateTime(?))
                      AND toYear(toDateTime(unix_time)) <= toYear(toDateTime(?))
                )
                GROUP BY symbol, year_bucket, first_ts
                ORDER BY year_bucket ASC
            `, src)
			return q, []interface{}{symbol, startUnix, endUnix}
		}
		q := fmt.Sprintf(`
            SELECT symbol, bucket_start AS unix_time,
                   argMin(open, unix_time) AS open,
                   max(high) AS high,
                   min(low) AS low,
                   argMax(close, unix_time) AS close,
                   sum(volume) AS volume
            FROM (
                SELECT symbol, unix_time, open, high, low, close, volume,
                       intDiv(unix_time, ?) * ? AS bucket_start
                FROM %s
                WHERE symbol = ? AND unix_time >= ? AND unix_time <= ?
            )
            GROUP BY symbol, bucket_start
            ORDER BY bucket_start ASC
        `, src)
		return q, []interface{}{intervalSeconds, intervalSeconds, symbol, startUnix, endUnix}
	}

	query, args := build(e.source(paths))
	rows, err := e.queryRecords(ctx, query, args...)
	if err != nil {
		if !isMissingObject(err) {
			return nil, fmt.Errorf("aggregated query: %w", err)
		}
		return e.recoverPerPath(ctx, paths, symbol, func(path string) ([]models.OHLCVRecord, error) {
			single, singleArgs := build(e.source([]string{path}))
			return e.queryRecords(ctx, single, singleArgs...)
		})
	}
	return rows, nil
}

func (e *ClickHouseEngine) QueryMultiSymbol(ctx context.Context, pathsBySymbol map[string][]string, startUnix, endUnix, intervalSeconds int64) (map[string][]models.OHLCVRecord, error) {
	symbols := make([]string, 0, len(pathsBySymbol))
	for sym := range pathsBySymbol {
		if len(pathsBySymbol[sym]) > 0 {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	if len(symbols) == 0 {
		return map[string][]models.OHLCVRecord{}, nil
	}

	var (
		subqueries []string
		args       []interface{}
	)
	for _, sym := range symbols {
		subqueries = append(subqueries, fmt.Sprintf(`
            SELECT symbol, bucket_start AS unix_time,
                   argMin(open, unix_time) AS open,
                   max(high) AS high,
                   min(low) AS low,
                   argMax(close, unix_time) AS close,
                   sum(volume) AS volume
            FROM (
                SELECT symbol, unix_time, open, high, low, close, volume,
                       intDiv(unix_time, ?) * ? AS bucket_start
                FROM %s
                WHERE symbol = ? AND unix_time >= ? AND unix_time <= ?
            )
            GROUP BY symbol, bucket_start
        `, e.source(pathsBySymbol[sym])))
		args = append(args, intervalSeconds, intervalSeconds, sym, startUnix, endUnix)
	}

	query := strings.Join(subqueries, " UNION ALL ") + " ORDER BY symbol, unix_time ASC"
	rows, err := e.queryRecords(ctx, query, args...)
	if err != nil {
		if !isMissingObject(err) {
			return nil, fmt.Errorf("multi-symbol query: %w", err)
		}
		// Resolve each symbol independently; their per-path recovery
		// absorbs whatever is still missing.
		results := make(map[string][]models.OHLCVRecord, len(symbols))
		for _, sym := range symbols {
			symRows, symErr := e.QueryAggregated(ctx, pathsBySymbol[sym], sym, startUnix, endUnix, intervalSeconds)
			if symErr != nil {
				return nil, fmt.Errorf("symbol %s: %w", sym, symErr)
			}
			if len(symRows) > 0 {
				results[sym] = symRows
			}
		}
		return results, nil
	}

	results := make(map[string][]models.OHLCVRecord)
	for _, row := range rows {
		results[row.Symbol] = append(results[row.Symbol], row)
	}
	return results, nil
}

func (e *ClickHouseEngine) QueryProjected(ctx context.Context, paths []string, symbol string, startUnix, endUnix int64, columns []string) ([]models.OHLCVRecord, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	selected := projectionList(columns)
	query := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE symbol = ? AND unix_time >= ? AND unix_time <= ?
        ORDER BY unix_time ASC
    `, strings.Join(selected, ", "), e.source(paths))

	rows, err := e.queryProjectedRecords(ctx, query, selected, symbol, startUnix, endUnix)
	if err != nil {
		if !isMissingObject(err) {
			return nil, fmt.Errorf("projected query: %w", err)
		}
		return e.recoverPerPath(ctx, paths, symbol, func(path string) ([]models.OHLCVRecord, error) {
			single := fmt.Sprintf(`
                SELECT %s
                FROM %s
                WHERE symbol = ? AND unix_time >= ? AND unix_time <= ?
                ORDER BY unix_time ASC
            `, strings.Join(selected, ", "), e.source([]string{path}))
			return e.queryProjectedRecords(ctx, single, selected, symbol, startUnix, endUnix)
		})
	}
	return rows, nil
}

func (e *ClickHouseEngine) Close() error {
	return nil
}

// source renders the FROM clause for a path set. A single path maps to one
// s3() call; several paths become a UNION ALL subselect.
func (e *ClickHouseEngine) source(paths []string) string {
	if len(paths) == 1 {
		return fmt.Sprintf("s3('%s', '%s', '%s', 'Parquet')",
			escapeSQLString(e.loc.url(paths[0])),
			escapeSQLString(e.loc.AccessKey),
			escapeSQLString(e.loc.SecretKey))
	}

	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = fmt.Sprintf("SELECT * FROM s3('%s', '%s', '%s', 'Parquet')",
			escapeSQLString(e.loc.url(p)),
			escapeSQLString(e.loc.AccessKey),
			escapeSQLString(e.loc.SecretKey))
	}
	return "(" + strings.Join(parts, " UNION ALL ") + ")"
}

func (e *ClickHouseEngine) queryRecords(ctx context.Context, query string, args ...interface{}) ([]models.OHLCVRecord, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.OHLCVRecord, 0, 1024)
	for rows.Next() {
		var rec models.OHLCVRecord
		if err := rows.Scan(&rec.Symbol, &rec.UnixTime, &rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Timestamp = time.Unix(rec.UnixTime, 0).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (e *ClickHouseEngine) queryProjectedRecords(ctx context.Context, query string, selected []string, args ...interface{}) ([]models.OHLCVRecord, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.OHLCVRecord, 0, 1024)
	for rows.Next() {
		var rec models.OHLCVRecord
		targets := make([]interface{}, len(selected))
		for i, col := range selected {
			switch col {
			case "symbol":
				targets[i] = &rec.Symbol
			case "unix_time":
				targets[i] = &rec.UnixTime
			case "open":
				targets[i] = &rec.Open
			case "high":
				targets[i] = &rec.High
			case "low":
				targets[i] = &rec.Low
			case "close":
				targets[i] = &rec.Close
			case "volume":
				targets[i] = &rec.Volume
			}
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan projected record: %w", err)
		}
		rec.Timestamp = time.Unix(rec.UnixTime, 0).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (e *ClickHouseEngine) recoverPerPath(ctx context.Context, paths []string, symbol string, query func(path string) ([]models.OHLCVRecord, error)) ([]models.OHLCVRecord, error) {
	var (
		all       []models.OHLCVRecord
		recovered int
	)

	for _, path := range paths {
		rows, err := query(path)
		if err != nil {
			continue
		}
		recovered++
		all = append(all, rows...)
	}

	rate := float64(recovered) / float64(len(paths)) * 100
	e.log.Warn("partial data recovery completed",
		logger.String("symbol", symbol),
		logger.Int("total_paths", len(paths)),
		logger.Int("successful_paths", recovered),
		logger.Int("failed_paths", len(paths)-recovered),
		logger.Float64("recovery_rate_percent", rate),
	)
	if e.metrics != nil {
		e.metrics.RecordPartialRecovery(symbol, len(paths), recovered)
	}

	sortByUnixTime(all)
	return all, nil
}

// projectionList returns the SELECT columns for a projected read: the caller
// set plus the mandatory filter columns, deduplicated, in stable order.
func projectionList(columns []string) []string {
	seen := map[string]bool{colSymbol: true, colUnixTime: true}
	out := []string{colSymbol, colUnixTime}
	for _, c := range columns {
		if c == "timestamp" || seen[c] {
			continue
		}
		switch c {
		case "open", "high", "low", "close", "volume":
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// isMissingObject classifies errors raised when the s3() source cannot find
// a partition file.
func isMissingObject(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "nosuchkey") ||
		strings.Contains(msg, "no such key")
}

func escapeSQLString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
