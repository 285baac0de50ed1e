package repository

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/logger"
)

type testBar struct {
	Symbol   string  `parquet:"symbol"`
	UnixTime int64   `parquet:"unix_time"`
	Open     float64 `parquet:"open"`
	High     float64 `parquet:"high"`
	Low      float64 `parquet:"low"`
	Close    float64 `parquet:"close"`
	Volume   float64 `parquet:"volume"`
}

// memStore is an in-memory ObjectStore for engine tests.
type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) put(t *testing.T, key string, bars []testBar) {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[testBar](&buf)
	_, err := w.Write(bars)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	s.objects[key] = buf.Bytes()
}

func (s *memStore) ListObjects(_ context.Context, prefix string) ([]repository.ObjectInfo, error) {
	var infos []repository.ObjectInfo
	for name := range s.objects {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			infos = append(infos, repository.ObjectInfo{Name: name})
		}
	}
	return infos, nil
}

func (s *memStore) GetStream(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, models.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) Upload(_ context.Context, key string, data []byte) error {
	s.objects[key] = data
	return nil
}

func (s *memStore) Bucket() string { return "test-bucket" }

func newTestEngine(store *memStore) *ParquetEngine {
	return NewParquetEngine(store, logger.Nop(), nil)
}

func minuteBars(symbol string, start int64, n int, price float64) []testBar {
	bars := make([]testBar, n)
	for i := 0; i < n; i++ {
		p := price + float64(i)
		bars[i] = testBar{
			Symbol:   symbol,
			UnixTime: start + int64(i)*60,
			Open:     p,
			High:     p + 1,
			Low:      p - 1,
			Close:    p + 0.5,
			Volume:   10,
		}
	}
	return bars
}

func TestQueryRawFiltersAndSorts(t *testing.T) {
	store := newMemStore()
	store.put(t, "day1", minuteBars("BTC", 600, 5, 100))
	store.put(t, "day2", minuteBars("BTC", 60, 3, 50))

	engine := newTestEngine(store)
	rows, err := engine.QueryRaw(context.Background(), []string{"day1", "day2"}, "BTC", 60, 900)
	require.NoError(t, err)

	// day2 has rows at 60,120,180; day1 contributes 600,660,720,780,840.
	require.Len(t, rows, 8)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].UnixTime, rows[i].UnixTime)
	}
	assert.Equal(t, int64(60), rows[0].UnixTime)
	assert.Equal(t, 50.0, rows[0].Open)
}

func TestQueryRawIgnoresOtherSymbols(t *testing.T) {
	store := newMemStore()
	mixed := append(minuteBars("BTC", 0, 2, 100), minuteBars("ETH", 0, 2, 10)...)
	store.put(t, "mixed", mixed)

	engine := newTestEngine(store)
	rows, err := engine.QueryRaw(context.Background(), []string{"mixed"}, "BTC", 0, 3600)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "BTC", r.Symbol)
	}
}

func TestQueryAggregatedBuckets(t *testing.T) {
	store := newMemStore()
	store.put(t, "day1", minuteBars("BTC", 0, 10, 100))

	engine := newTestEngine(store)
	rows, err := engine.QueryAggregated(context.Background(), []string{"day1"}, "BTC", 0, 3600, 300)
	require.NoError(t, err)

	// 10 minute bars collapse into two 5-minute buckets.
	require.Len(t, rows, 2)
	assert.Equal(t, int64(0), rows[0].UnixTime)
	assert.Equal(t, int64(300), rows[1].UnixTime)
	assert.Equal(t, 100.0, rows[0].Open)
	assert.Equal(t, 104.5, rows[0].Close)
	assert.Equal(t, 50.0, rows[0].Volume)
}

func TestQueryAggregatedCalendarYear(t *testing.T) {
	store := newMemStore()
	y2017 := time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	y2018 := time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	store.put(t, "y2017", minuteBars("BTC", y2017, 3, 100))
	store.put(t, "y2018", minuteBars("BTC", y2018, 3, 200))

	engine := newTestEngine(store)
	rows, err := engine.QueryAggregated(context.Background(), []string{"y2017", "y2018"}, "BTC",
		time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
		time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC).Unix(),
		repository.YearIntervalSeconds)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, y2017, rows[0].UnixTime)
	assert.Equal(t, y2018, rows[1].UnixTime)
	assert.Equal(t, 100.0, rows[0].Open)
	assert.Equal(t, 200.0, rows[1].Open)
}

func TestQueryPartialRecovery(t *testing.T) {
	store := newMemStore()
	store.put(t, "day1", minuteBars("BTC", 0, 3, 100))
	store.put(t, "day3", minuteBars("BTC", 7200, 3, 120))

	engine := newTestEngine(store)
	rows, err := engine.QueryRaw(context.Background(), []string{"day1", "day2-missing", "day3"}, "BTC", 0, 86400)
	require.NoError(t, err)

	// Missing middle partition is absorbed; union stays sorted.
	require.Len(t, rows, 6)
	assert.Equal(t, int64(0), rows[0].UnixTime)
	assert.Equal(t, int64(7320), rows[5].UnixTime)
}

func TestQueryAllPartitionsMissing(t *testing.T) {
	engine := newTestEngine(newMemStore())
	rows, err := engine.QueryRaw(context.Background(), []string{"nope1", "nope2"}, "BTC", 0, 86400)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryCorruptFilePropagates(t *testing.T) {
	store := newMemStore()
	store.objects["bad"] = []byte("not a parquet file")

	engine := newTestEngine(store)
	_, err := engine.QueryRaw(context.Background(), []string{"bad"}, "BTC", 0, 86400)
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrObjectNotFound))
}

func TestQueryMultiSymbol(t *testing.T) {
	store := newMemStore()
	store.put(t, "btc/day1", minuteBars("BTC", 0, 5, 100))
	store.put(t, "eth/day1", minuteBars("ETH", 0, 5, 10))

	engine := newTestEngine(store)
	results, err := engine.QueryMultiSymbol(context.Background(), map[string][]string{
		"BTC": {"btc/day1"},
		"ETH": {"eth/day1", "eth/day2-missing"},
	}, 0, 3600, 300)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 100.0, results["BTC"][0].Open)
	assert.Equal(t, 10.0, results["ETH"][0].Open)
}

func TestQueryProjectedSubset(t *testing.T) {
	store := newMemStore()
	store.put(t, "day1", minuteBars("BTC", 0, 3, 100))

	engine := newTestEngine(store)
	rows, err := engine.QueryProjected(context.Background(), []string{"day1"}, "BTC", 0, 3600, []string{"close", "volume"})
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, 100.5, rows[0].Close)
	assert.Equal(t, 10.0, rows[0].Volume)
	// Unrequested columns stay zero.
	assert.Zero(t, rows[0].Open)
	assert.Zero(t, rows[0].High)
	// Filter columns are always present.
	assert.Equal(t, "BTC", rows[0].Symbol)
	assert.Equal(t, int64(0), rows[0].UnixTime)
}
