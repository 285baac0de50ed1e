package usecase

import (
	"context"
	"fmt"
	"time"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/internal/service/monitor"
	"CandleQuery/pkg/logger"
	"CandleQuery/pkg/util"
)

// MarketDataUseCase answers OHLCV queries: it validates and governs the
// request, clamps it to available data, plans the partition paths, consults
// the cache, and finally runs the query engine.
type MarketDataUseCase struct {
	governor *Governor
	boundary *BoundaryResolver
	planner  repository.PathPlanner
	store    repository.ObjectStore
	engine   repository.QueryEngine
	cache    repository.MarketDataCache
	monitor  *monitor.PerformanceMonitor
	log      *logger.Logger
	now      func() time.Time
}

// MarketDataOption tweaks optional behavior.
type MarketDataOption func(*MarketDataUseCase)

// WithMarketDataClock replaces the wall clock, for tests.
func WithMarketDataClock(now func() time.Time) MarketDataOption {
	return func(uc *MarketDataUseCase) { uc.now = now }
}

// NewMarketDataUseCase wires the query pipeline. cache and monitor may be nil;
// the pipeline then skips those stages.
func NewMarketDataUseCase(
	governor *Governor,
	boundary *BoundaryResolver,
	planner repository.PathPlanner,
	store repository.ObjectStore,
	engine repository.QueryEngine,
	cache repository.MarketDataCache,
	mon *monitor.PerformanceMonitor,
	log *logger.Logger,
	opts ...MarketDataOption,
) *MarketDataUseCase {
	if log == nil {
		log = logger.Nop()
	}
	uc := &MarketDataUseCase{
		governor: governor,
		boundary: boundary,
		planner:  planner,
		store:    store,
		engine:   engine,
		cache:    cache,
		monitor:  mon,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// GetOHLCV resolves one symbol's candles for the requested window.
func (uc *MarketDataUseCase) GetOHLCV(ctx context.Context, req models.OHLCVRequest) (*models.OHLCVResponse, error) {
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}

	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	tf := uc.governor.AutoAdjustTimeframe(start, end, repository.Timeframe(req.Timeframe))
	if err := uc.governor.Validate(start, end, tf); err != nil {
		return nil, err
	}

	source := repository.SourceResolution(req.SourceResolution)
	if req.SourceResolution == "" {
		source = uc.governor.ChooseSource(tf, start, end)
	}

	bs, be := start, end
	if uc.boundary != nil {
		bs, be = uc.boundary.Bound(ctx, req.Symbol, start, end, source)
	}

	paths, err := uc.planner.Plan(req.Symbol, bs, be, source)
	if err != nil {
		return nil, fmt.Errorf("plan partitions: %w", err)
	}

	startUnix := util.StartOfDayUnix(bs)
	endUnix := util.EndOfDayUnix(be)
	queryType := "aggregated"
	if tf == repository.TF1m && source == repository.SourceMinute {
		queryType = "raw"
	}

	var track *monitor.Tracking
	if uc.monitor != nil {
		track = uc.monitor.StartQuery(queryType, req.Symbol)
	}

	if uc.cache != nil {
		if data, ok := uc.cache.GetOHLCV(ctx, req.Symbol, tf, startUnix, endUnix); ok {
			if track != nil {
				track.Complete(len(data), true, 0)
			}
			return uc.respond(req.Symbol, tf, source, bs, be, data), nil
		}
	}

	var records []models.OHLCVRecord
	if queryType == "raw" {
		records, err = uc.engine.QueryRaw(ctx, paths, req.Symbol, startUnix, endUnix)
	} else {
		records, err = uc.engine.QueryAggregated(ctx, paths, req.Symbol, startUnix, endUnix, tf.IntervalSeconds())
	}
	if err != nil {
		return nil, fmt.Errorf("query ohlcv: %w", err)
	}

	if err := uc.governor.ValidateResultSize(len(records)); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		if exists, checkErr := uc.anyPartitionExists(ctx, paths); checkErr == nil && !exists {
			return nil, &models.NoPartitionsError{
				Symbol:           req.Symbol,
				SourceResolution: string(source),
				StartDate:        util.FormatDate(bs),
				EndDate:          util.FormatDate(be),
			}
		}
	}

	if uc.cache != nil && len(records) > 0 {
		uc.cache.SetOHLCV(ctx, req.Symbol, tf, startUnix, endUnix, records)
	}
	if track != nil {
		track.Complete(len(records), false, 0)
	}
	return uc.respond(req.Symbol, tf, source, bs, be, records), nil
}

// MultiSymbolParams selects several symbols over one shared window.
type MultiSymbolParams struct {
	Symbols   []string
	StartDate string
	EndDate   string
	Timeframe string
}

// GetMultiSymbol resolves candles for several symbols in one batch. Every
// symbol shares the window, timeframe and source layout.
func (uc *MarketDataUseCase) GetMultiSymbol(ctx context.Context, p MultiSymbolParams) (map[string][]models.OHLCVRecord, error) {
	if len(p.Symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol required")
	}

	start, end, err := parseWindow(p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}

	tf := repository.NormalizeTimeframe(p.Timeframe)
	tf = uc.governor.AutoAdjustTimeframe(start, end, tf)
	if err := uc.governor.Validate(start, end, tf); err != nil {
		return nil, err
	}
	source := uc.governor.ChooseSource(tf, start, end)

	pathsBySymbol := make(map[string][]string, len(p.Symbols))
	for _, symbol := range p.Symbols {
		paths, err := uc.planner.Plan(symbol, start, end, source)
		if err != nil {
			return nil, fmt.Errorf("plan partitions for %s: %w", symbol, err)
		}
		pathsBySymbol[symbol] = paths
	}

	var track *monitor.Tracking
	if uc.monitor != nil {
		track = uc.monitor.StartQuery("multi_symbol", fmt.Sprintf("%d symbols", len(p.Symbols)))
	}

	results, err := uc.engine.QueryMultiSymbol(ctx,
		pathsBySymbol, util.StartOfDayUnix(start), util.EndOfDayUnix(end), tf.IntervalSeconds())
	if err != nil {
		return nil, fmt.Errorf("query multi symbol: %w", err)
	}

	total := 0
	for _, records := range results {
		total += len(records)
	}
	if err := uc.governor.ValidateResultSize(total); err != nil {
		return nil, err
	}
	if track != nil {
		track.Complete(total, false, 0)
	}
	return results, nil
}

// CompareSources runs the same query against both partition layouts and
// reports per-source timing. The cache is bypassed so the numbers reflect
// storage reads.
func (uc *MarketDataUseCase) CompareSources(ctx context.Context, req models.OHLCVRequest) (*models.SourceComparison, error) {
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}
	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	tf := uc.governor.AutoAdjustTimeframe(start, end, repository.Timeframe(req.Timeframe))
	if err := uc.governor.Validate(start, end, tf); err != nil {
		return nil, err
	}

	cmp := &models.SourceComparison{Results: make(map[string]models.SourceRunResult)}
	for _, source := range repository.SourceResolutions() {
		began := uc.now()
		records, err := uc.queryDirect(ctx, req.Symbol, start, end, tf, source)
		elapsed := uc.now().Sub(began).Seconds()

		if err != nil {
			cmp.Results[string(source)] = models.SourceRunResult{Error: err.Error()}
			continue
		}
		d := elapsed
		cmp.Results[string(source)] = models.SourceRunResult{
			DurationSeconds: &d,
			RecordCount:     len(records),
			Success:         true,
		}
	}

	minute := cmp.Results[string(repository.SourceMinute)]
	yearly := cmp.Results[string(repository.SourceYearly)]
	if minute.Success && yearly.Success && minute.DurationSeconds != nil && *minute.DurationSeconds > 0 {
		improvement := (*minute.DurationSeconds - *yearly.DurationSeconds) / *minute.DurationSeconds * 100
		cmp.ImprovementPercent = &improvement
	}
	return cmp, nil
}

// queryDirect runs the storage query for one source layout, skipping cache
// and monitoring.
func (uc *MarketDataUseCase) queryDirect(ctx context.Context, symbol string, start, end time.Time, tf repository.Timeframe, source repository.SourceResolution) ([]models.OHLCVRecord, error) {
	bs, be := start, end
	if uc.boundary != nil {
		bs, be = uc.boundary.Bound(ctx, symbol, start, end, source)
	}
	paths, err := uc.planner.Plan(symbol, bs, be, source)
	if err != nil {
		return nil, err
	}

	startUnix := util.StartOfDayUnix(bs)
	endUnix := util.EndOfDayUnix(be)
	if tf == repository.TF1m && source == repository.SourceMinute {
		return uc.engine.QueryRaw(ctx, paths, symbol, startUnix, endUnix)
	}
	return uc.engine.QueryAggregated(ctx, paths, symbol, startUnix, endUnix, tf.IntervalSeconds())
}

// anyPartitionExists reports whether at least one of the planned paths is
// present in the store.
func (uc *MarketDataUseCase) anyPartitionExists(ctx context.Context, paths []string) (bool, error) {
	if uc.store == nil {
		return true, nil
	}
	for _, path := range paths {
		ok, err := uc.store.Exists(ctx, path)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (uc *MarketDataUseCase) respond(symbol string, tf repository.Timeframe, source repository.SourceResolution, start, end time.Time, records []models.OHLCVRecord) *models.OHLCVResponse {
	if records == nil {
		records = []models.OHLCVRecord{}
	}
	return &models.OHLCVResponse{
		Symbol:           symbol,
		Timeframe:        string(tf),
		SourceResolution: string(source),
		StartDate:        util.FormatDate(start),
		EndDate:          util.FormatDate(end),
		Count:            len(records),
		Data:             records,
	}
}

func parseWindow(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := util.ParseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start date: %w", err)
	}
	end, err := util.ParseDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end date: %w", err)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, models.ErrEmptyRange
	}
	return start, end, nil
}
