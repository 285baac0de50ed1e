package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/logger"
)

// ohlcvColumns are the leaf columns read for a full OHLCV projection. The
// timestamp column stored in the files is derived from unix_time, so it is
// reconstructed instead of read.
var ohlcvColumns = []string{"open", "high", "low", "close", "volume"}

// mandatory filter columns present in every read.
const (
	colSymbol   = "symbol"
	colUnixTime = "unix_time"
)

// ParquetEngine executes OHLCV queries by reading partition files directly
// through the object store and aggregating in process.
type ParquetEngine struct {
	store   repository.ObjectStore
	log     *logger.Logger
	metrics repository.Metrics
}

// NewParquetEngine creates an in-process query engine.
func NewParquetEngine(store repository.ObjectStore, log *logger.Logger, metrics repository.Metrics) *ParquetEngine {
	return &ParquetEngine{store: store, log: log, metrics: metrics}
}

// rowFilter bounds the rows kept from each partition file. Calendar-year
// aggregation filters by UTC year instead of the raw unix range because
// yearly files hold whole years.
type rowFilter struct {
	startUnix int64
	endUnix   int64
	byYear    bool
}

func (f rowFilter) keep(unixTime int64) bool {
	if f.byYear {
		y := time.Unix(unixTime, 0).UTC().Year()
		return y >= time.Unix(f.startUnix, 0).UTC().Year() &&
			y <= time.Unix(f.endUnix, 0).UTC().Year()
	}
	return unixTime >= f.startUnix && unixTime <= f.endUnix
}

func (e *ParquetEngine) QueryRaw(ctx context.Context, paths []string, symbol string, startUnix, endUnix int64) ([]models.OHLCVRecord, error) {
	rows, err := e.readPaths(ctx, paths, symbol, rowFilter{startUnix: startUnix, endUnix: endUnix}, ohlcvColumns)
	if err != nil {
		return nil, err
	}
	sortByUnixTime(rows)
	return rows, nil
}

func (e *ParquetEngine) QueryAggregated(ctx context.Context, paths []string, symbol string, startUnix, endUnix, intervalSeconds int64) ([]models.OHLCVRecord, error) {
	filter := rowFilter{
		startUnix: startUnix,
		endUnix:   endUnix,
		byYear:    intervalSeconds == repository.YearIntervalSeconds,
	}
	rows, err := e.readPaths(ctx, paths, symbol, filter, ohlcvColumns)
	if err != nil {
		return nil, err
	}
	return aggregateBuckets(rows, intervalSeconds), nil
}

func (e *ParquetEngine) QueryMultiSymbol(ctx context.Context, pathsBySymbol map[string][]string, startUnix, endUnix, intervalSeconds int64) (map[string][]models.OHLCVRecord, error) {
	symbols := make([]string, 0, len(pathsBySymbol))
	for sym := range pathsBySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	results := make(map[string][]models.OHLCVRecord, len(symbols))
	for _, sym := range symbols {
		paths := pathsBySymbol[sym]
		if len(paths) == 0 {
			continue
		}
		rows, err := e.QueryAggregated(ctx, paths, sym, startUnix, endUnix, intervalSeconds)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", sym, err)
		}
		if len(rows) > 0 {
			results[sym] = rows
		}
	}
	return results, nil
}

func (e *ParquetEngine) QueryProjected(ctx context.Context, paths []string, symbol string, startUnix, endUnix int64, columns []string) ([]models.OHLCVRecord, error) {
	// Deduplicate against the mandatory filter columns.
	want := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != colSymbol && c != colUnixTime && c != "timestamp" {
			want = append(want, c)
		}
	}
	rows, err := e.readPaths(ctx, paths, symbol, rowFilter{startUnix: startUnix, endUnix: endUnix}, want)
	if err != nil {
		return nil, err
	}
	sortByUnixTime(rows)
	return rows, nil
}

func (e *ParquetEngine) Close() error {
	return nil
}

// readPaths reads every partition, absorbing missing-file errors path by path
// and returning the union of what could be read. Any other error class stops
// the query and propagates.
func (e *ParquetEngine) readPaths(ctx context.Context, paths []string, symbol string, filter rowFilter, columns []string) ([]models.OHLCVRecord, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	var (
		all       []models.OHLCVRecord
		failed    []string
		recovered int
	)

	for _, path := range paths {
		rows, err := e.readPath(ctx, path, symbol, filter, columns)
		if err != nil {
			if errors.Is(err, models.ErrObjectNotFound) {
				failed = append(failed, path)
				continue
			}
			return nil, err
		}
		recovered++
		all = append(all, rows...)
	}

	if len(failed) > 0 {
		rate := float64(recovered) / float64(len(paths)) * 100
		e.log.Warn("partial data recovery completed",
			logger.String("symbol", symbol),
			logger.Int("total_paths", len(paths)),
			logger.Int("successful_paths", recovered),
			logger.Int("failed_paths", len(failed)),
			logger.Float64("recovery_rate_percent", rate),
		)
		if e.metrics != nil {
			e.metrics.RecordPartialRecovery(symbol, len(paths), recovered)
		}
	}
	return all, nil
}

func (e *ParquetEngine) readPath(ctx context.Context, path, symbol string, filter rowFilter, columns []string) ([]models.OHLCVRecord, error) {
	rc, err := e.store.GetStream(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet %q: %w", path, err)
	}

	colIndex := make(map[string]int)
	for i, p := range file.Schema().Columns() {
		if len(p) == 1 {
			colIndex[p[0]] = i
		}
	}
	for _, required := range []string{colSymbol, colUnixTime} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("parquet %q: missing column %q", path, required)
		}
	}

	var out []models.OHLCVRecord
	for _, rg := range file.RowGroups() {
		rows, err := e.readRowGroup(rg, colIndex, symbol, filter, columns)
		if err != nil {
			return nil, fmt.Errorf("parquet %q: %w", path, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// readRowGroup performs a columnar read: only the column chunks for the
// requested names are decoded, then zipped back into records by row index.
func (e *ParquetEngine) readRowGroup(rg parquet.RowGroup, colIndex map[string]int, symbol string, filter rowFilter, columns []string) ([]models.OHLCVRecord, error) {
	chunks := rg.ColumnChunks()
	numRows := rg.NumRows()

	symbols, err := readColumnValues(chunks[colIndex[colSymbol]], numRows)
	if err != nil {
		return nil, err
	}
	unixTimes, err := readColumnValues(chunks[colIndex[colUnixTime]], numRows)
	if err != nil {
		return nil, err
	}

	projected := make(map[string][]parquet.Value, len(columns))
	for _, name := range columns {
		idx, ok := colIndex[name]
		if !ok {
			continue
		}
		vals, err := readColumnValues(chunks[idx], numRows)
		if err != nil {
			return nil, err
		}
		projected[name] = vals
	}

	var out []models.OHLCVRecord
	for i := int64(0); i < numRows; i++ {
		if symbols[i].String() != symbol {
			continue
		}
		unixTime := valueInt(unixTimes[i])
		if !filter.keep(unixTime) {
			continue
		}

		rec := models.OHLCVRecord{
			Symbol:    symbol,
			Timestamp: time.Unix(unixTime, 0).UTC(),
			UnixTime:  unixTime,
		}
		if vals, ok := projected["open"]; ok {
			rec.Open = valueFloat(vals[i])
		}
		if vals, ok := projected["high"]; ok {
			rec.High = valueFloat(vals[i])
		}
		if vals, ok := projected["low"]; ok {
			rec.Low = valueFloat(vals[i])
		}
		if vals, ok := projected["close"]; ok {
			rec.Close = valueFloat(vals[i])
		}
		if vals, ok := projected["volume"]; ok {
			rec.Volume = valueFloat(vals[i])
		}
		out = append(out, rec)
	}
	return out, nil
}

func readColumnValues(chunk parquet.ColumnChunk, numRows int64) ([]parquet.Value, error) {
	values := make([]parquet.Value, 0, numRows)
	pages := chunk.Pages()
	defer pages.Close()

	for {
		page, err := pages.ReadPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		buf := make([]parquet.Value, page.NumValues())
		reader := page.Values()
		read := 0
		for read < len(buf) {
			n, err := reader.ReadValues(buf[read:])
			read += n
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
		}
		values = append(values, buf[:read]...)
	}

	if int64(len(values)) != numRows {
		return nil, fmt.Errorf("column read mismatch: got %d values, want %d rows", len(values), numRows)
	}
	return values, nil
}

func valueInt(v parquet.Value) int64 {
	switch v.Kind() {
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Double:
		return int64(v.Double())
	default:
		return 0
	}
}

func valueFloat(v parquet.Value) float64 {
	switch v.Kind() {
	case parquet.Double:
		return v.Double()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.Int32:
		return float64(v.Int32())
	default:
		return 0
	}
}
