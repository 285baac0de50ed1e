package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	intrepo "CandleQuery/internal/repository"
	"CandleQuery/internal/service/monitor"
	"CandleQuery/pkg/logger"
)

type scriptEngine struct {
	minuteRecords []models.OHLCVRecord
	yearlyRecords []models.OHLCVRecord
	multi         map[string][]models.OHLCVRecord
	err           error

	rawCalls     int
	aggCalls     int
	lastInterval int64
	lastPaths    []string
}

func (e *scriptEngine) bySource(paths []string) []models.OHLCVRecord {
	if len(paths) > 0 && strings.HasPrefix(paths[0], "ohlcv/1m/") {
		return e.minuteRecords
	}
	return e.yearlyRecords
}

func (e *scriptEngine) QueryRaw(_ context.Context, paths []string, _ string, _, _ int64) ([]models.OHLCVRecord, error) {
	e.rawCalls++
	e.lastPaths = paths
	return e.bySource(paths), e.err
}

func (e *scriptEngine) QueryAggregated(_ context.Context, paths []string, _ string, _, _ int64, interval int64) ([]models.OHLCVRecord, error) {
	e.aggCalls++
	e.lastInterval = interval
	e.lastPaths = paths
	return e.bySource(paths), e.err
}

func (e *scriptEngine) QueryMultiSymbol(_ context.Context, pathsBySymbol map[string][]string, _, _ int64, interval int64) (map[string][]models.OHLCVRecord, error) {
	e.lastInterval = interval
	out := make(map[string][]models.OHLCVRecord, len(pathsBySymbol))
	for symbol := range pathsBySymbol {
		out[symbol] = e.multi[symbol]
	}
	return out, e.err
}

func (e *scriptEngine) QueryProjected(context.Context, []string, string, int64, int64, []string) ([]models.OHLCVRecord, error) {
	return nil, nil
}

func (e *scriptEngine) Close() error { return nil }

type fakeResultCache struct {
	data map[string][]models.OHLCVRecord
	sets int
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{data: make(map[string][]models.OHLCVRecord)}
}

func (c *fakeResultCache) key(symbol string, tf repository.Timeframe, startUnix, endUnix int64) string {
	return fmt.Sprintf("%s/%s/%d/%d", symbol, tf, startUnix, endUnix)
}

func (c *fakeResultCache) GetOHLCV(_ context.Context, symbol string, tf repository.Timeframe, startUnix, endUnix int64) ([]models.OHLCVRecord, bool) {
	data, ok := c.data[c.key(symbol, tf, startUnix, endUnix)]
	return data, ok
}

func (c *fakeResultCache) SetOHLCV(_ context.Context, symbol string, tf repository.Timeframe, startUnix, endUnix int64, data []models.OHLCVRecord) {
	c.sets++
	c.data[c.key(symbol, tf, startUnix, endUnix)] = data
}

func sampleRecords(n int) []models.OHLCVRecord {
	out := make([]models.OHLCVRecord, n)
	base := day("2021-01-01").Unix()
	for i := range out {
		out[i] = models.OHLCVRecord{
			Symbol:   "BTC",
			UnixTime: base + int64(i)*86400,
			Open:     100,
			Close:    101,
			Volume:   10,
		}
	}
	return out
}

type ucFixture struct {
	engine *scriptEngine
	cache  *fakeResultCache
	store  *stubStore
	uc     *MarketDataUseCase
}

func newFixture(gcfg GovernorConfig, opts ...MarketDataOption) *ucFixture {
	f := &ucFixture{
		engine: &scriptEngine{},
		cache:  newFakeResultCache(),
		store:  &stubStore{objects: map[string][]byte{}},
	}
	f.uc = NewMarketDataUseCase(
		NewGovernor(gcfg),
		nil,
		intrepo.NewPartitionPlanner(),
		f.store,
		f.engine,
		f.cache,
		monitor.New(logger.Nop(), nil),
		logger.Nop(),
		opts...,
	)
	return f
}

func TestGetOHLCVAggregated(t *testing.T) {
	f := newFixture(GovernorConfig{})
	f.engine.yearlyRecords = sampleRecords(31)
	f.store.objects["ohlcv/1Y/symbol=BTC/year=2021/BTC_2021.parquet"] = []byte{1}

	resp, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-01-31",
		Timeframe: "1d",
	})
	require.NoError(t, err)

	assert.Equal(t, "BTC", resp.Symbol)
	assert.Equal(t, "1d", resp.Timeframe)
	assert.Equal(t, "1Y", resp.SourceResolution)
	assert.Equal(t, 31, resp.Count)
	assert.Equal(t, 1, f.engine.aggCalls)
	assert.Equal(t, int64(86400), f.engine.lastInterval)
	assert.Equal(t, []string{"ohlcv/1Y/symbol=BTC/year=2021/BTC_2021.parquet"}, f.engine.lastPaths)
	assert.Equal(t, 1, f.cache.sets)
}

func TestGetOHLCVRawForShortMinuteRequests(t *testing.T) {
	f := newFixture(GovernorConfig{})
	f.engine.minuteRecords = sampleRecords(3)

	resp, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-01-03",
		Timeframe: "1m",
	})
	require.NoError(t, err)

	assert.Equal(t, "1m", resp.SourceResolution)
	assert.Equal(t, 1, f.engine.rawCalls)
	assert.Zero(t, f.engine.aggCalls)
	assert.Len(t, f.engine.lastPaths, 3)
}

func TestGetOHLCVCacheHit(t *testing.T) {
	f := newFixture(GovernorConfig{})
	cached := sampleRecords(5)
	f.cache.SetOHLCV(context.Background(), "BTC", repository.TF1d,
		day("2021-01-01").Unix(), day("2021-01-05").Unix()+86399, cached)
	f.cache.sets = 0

	resp, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-01-05",
		Timeframe: "1d",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, resp.Count)
	assert.Zero(t, f.engine.aggCalls)
	assert.Zero(t, f.engine.rawCalls)
	assert.Zero(t, f.cache.sets)
}

func TestGetOHLCVAutoAdjustsTimeframe(t *testing.T) {
	f := newFixture(GovernorConfig{AutoAdjust: true})
	f.engine.yearlyRecords = sampleRecords(10)
	f.store.objects["ohlcv/1Y/symbol=BTC/year=2021/BTC_2021.parquet"] = []byte{1}

	resp, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-03-01",
		Timeframe: "1m",
	})
	require.NoError(t, err)

	assert.Equal(t, "1h", resp.Timeframe)
	assert.Equal(t, int64(3600), f.engine.lastInterval)
}

func TestGetOHLCVRequestTooLarge(t *testing.T) {
	f := newFixture(GovernorConfig{})

	_, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-03-01",
		Timeframe: "1m",
	})
	var tooLarge *models.RequestTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.NotZero(t, tooLarge.EstimatedRecords)
}

func TestGetOHLCVInvalidRequests(t *testing.T) {
	f := newFixture(GovernorConfig{})
	ctx := context.Background()

	t.Run("bad timeframe", func(t *testing.T) {
		_, err := f.uc.GetOHLCV(ctx, models.OHLCVRequest{
			Symbol: "BTC", StartDate: "2021-01-01", EndDate: "2021-01-02", Timeframe: "2h",
		})
		var invalid *models.InvalidTimeframeError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "2h", invalid.Timeframe)
		assert.Contains(t, invalid.Available, "4h")
	})

	t.Run("bad source resolution", func(t *testing.T) {
		_, err := f.uc.GetOHLCV(ctx, models.OHLCVRequest{
			Symbol: "BTC", StartDate: "2021-01-01", EndDate: "2021-01-02", SourceResolution: "5m",
		})
		var invalid *models.InvalidSourceResolutionError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := f.uc.GetOHLCV(ctx, models.OHLCVRequest{
			Symbol: "BTC", StartDate: "2021-02-01", EndDate: "2021-01-01",
		})
		require.ErrorIs(t, err, models.ErrEmptyRange)
	})

	t.Run("lowercase symbol", func(t *testing.T) {
		_, err := f.uc.GetOHLCV(ctx, models.OHLCVRequest{
			Symbol: "btc", StartDate: "2021-01-01", EndDate: "2021-01-02",
		})
		require.Error(t, err)
	})
}

func TestGetOHLCVNoPartitions(t *testing.T) {
	f := newFixture(GovernorConfig{})

	_, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-01-31",
		Timeframe: "1d",
	})
	var noParts *models.NoPartitionsError
	require.ErrorAs(t, err, &noParts)
	assert.Equal(t, "BTC", noParts.Symbol)
	assert.Equal(t, "1Y", noParts.SourceResolution)
}

func TestGetOHLCVEmptyButPartitionsExist(t *testing.T) {
	f := newFixture(GovernorConfig{})
	f.store.objects["ohlcv/1Y/symbol=BTC/year=2021/BTC_2021.parquet"] = []byte{1}

	resp, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-01-31",
		Timeframe: "1d",
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Count)
	assert.NotNil(t, resp.Data)
	assert.Zero(t, f.cache.sets)
}

func TestGetOHLCVResultTooLarge(t *testing.T) {
	f := newFixture(GovernorConfig{MaxRecords: 10})
	f.engine.yearlyRecords = sampleRecords(11)

	_, err := f.uc.GetOHLCV(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-01-05",
		Timeframe: "1d",
	})
	var tooLarge *models.ResultTooLargeError
	require.ErrorAs(t, err, &tooLarge)
}

func TestGetMultiSymbol(t *testing.T) {
	f := newFixture(GovernorConfig{})
	f.engine.multi = map[string][]models.OHLCVRecord{
		"BTC": sampleRecords(3),
		"DAX": sampleRecords(2),
	}

	results, err := f.uc.GetMultiSymbol(context.Background(), MultiSymbolParams{
		Symbols:   []string{"BTC", "DAX"},
		StartDate: "2021-01-01",
		EndDate:   "2021-01-31",
		Timeframe: "1d",
	})
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Len(t, results["BTC"], 3)
	assert.Len(t, results["DAX"], 2)

	_, err = f.uc.GetMultiSymbol(context.Background(), MultiSymbolParams{})
	assert.Error(t, err)
}

func TestCompareSources(t *testing.T) {
	times := []time.Time{
		day("2024-01-01"),
		day("2024-01-01").Add(200 * time.Millisecond),
		day("2024-01-01").Add(200 * time.Millisecond),
		day("2024-01-01").Add(300 * time.Millisecond),
	}
	calls := 0
	clock := func() time.Time {
		t := times[calls]
		calls++
		return t
	}

	f := newFixture(GovernorConfig{}, WithMarketDataClock(clock))
	f.engine.minuteRecords = sampleRecords(4)
	f.engine.yearlyRecords = sampleRecords(4)

	cmp, err := f.uc.CompareSources(context.Background(), models.OHLCVRequest{
		Symbol:    "BTC",
		StartDate: "2021-01-01",
		EndDate:   "2021-01-03",
		Timeframe: "1m",
	})
	require.NoError(t, err)

	minute := cmp.Results["1m"]
	yearly := cmp.Results["1Y"]
	require.True(t, minute.Success)
	require.True(t, yearly.Success)
	assert.Equal(t, 4, minute.RecordCount)
	assert.InDelta(t, 0.2, *minute.DurationSeconds, 1e-9)
	assert.InDelta(t, 0.1, *yearly.DurationSeconds, 1e-9)
	require.NotNil(t, cmp.ImprovementPercent)
	assert.InDelta(t, 50.0, *cmp.ImprovementPercent, 1e-9)
}
