package usecase

import (
	"context"
	"math"
	"time"

	"CandleQuery/internal/domain/repository"
	"CandleQuery/internal/service/metadata"
	"CandleQuery/pkg/logger"
	"CandleQuery/pkg/util"
)

// BoundaryCatalog lists the partition keys present in storage for a symbol.
type BoundaryCatalog interface {
	AvailableDates(ctx context.Context, symbol string, source repository.SourceResolution) ([]string, error)
}

// BoundaryResolver clamps requested date windows to the range for which a
// symbol actually has data, so out-of-range requests return the nearest data
// instead of nothing.
type BoundaryResolver struct {
	meta    *metadata.Service
	catalog BoundaryCatalog
	engine  repository.QueryEngine
	planner repository.PathPlanner
	log     *logger.Logger
}

// NewBoundaryResolver creates a resolver backed by the metadata catalog, with
// a storage scan as last resort.
func NewBoundaryResolver(meta *metadata.Service, catalog BoundaryCatalog, engine repository.QueryEngine, planner repository.PathPlanner, log *logger.Logger) *BoundaryResolver {
	if log == nil {
		log = logger.Nop()
	}
	return &BoundaryResolver{meta: meta, catalog: catalog, engine: engine, planner: planner, log: log}
}

// DataRange resolves the earliest and latest available dates for symbol under
// source. Metadata is consulted first, then the partition listing is scanned.
// ok is false when neither yields a usable range; scan trouble is logged but
// never surfaced, since an unknown range just disables clamping.
func (r *BoundaryResolver) DataRange(ctx context.Context, symbol string, source repository.SourceResolution) (earliest, latest time.Time, ok bool) {
	if r.meta != nil {
		rng, err := r.meta.DataBoundaries(ctx, symbol, source)
		if err != nil {
			r.log.Warn("metadata boundary lookup failed",
				logger.String("symbol", symbol),
				logger.Error(err))
		} else if rng.Earliest != "" && rng.Latest != "" {
			e, okE := util.ParseTime(rng.Earliest)
			l, okL := util.ParseTime(rng.Latest)
			if okE && okL {
				return e, l, true
			}
			r.log.Warn("metadata boundary dates malformed",
				logger.String("symbol", symbol),
				logger.String("earliest", rng.Earliest),
				logger.String("latest", rng.Latest))
		}
	}
	return r.scanRange(ctx, symbol, source)
}

// Bound clamps [start, end] to the symbol's available range. When the request
// misses the range entirely, a window is snapped to the nearest edge of the
// data; the window keeps the character of the original request: a one-day
// request stays one day, short requests keep up to two weeks, everything else
// gets thirty days.
func (r *BoundaryResolver) Bound(ctx context.Context, symbol string, start, end time.Time, source repository.SourceResolution) (time.Time, time.Time) {
	earliest, latest, ok := r.DataRange(ctx, symbol, source)
	if !ok {
		return start, end
	}

	span := util.DaysBetween(start, end)
	window := clampWindowDays(span)

	switch {
	case end.Before(earliest):
		// Entirely before available data: snap forward to the start.
		be := earliest.AddDate(0, 0, window-1)
		if be.After(latest) {
			be = latest
		}
		r.logClamp(symbol, start, end, earliest, be)
		return earliest, be
	case start.After(latest):
		// Entirely after available data: snap back to the end.
		bs := latest.AddDate(0, 0, -(window - 1))
		if bs.Before(earliest) {
			bs = earliest
		}
		r.logClamp(symbol, start, end, bs, latest)
		return bs, latest
	default:
		bs, be := start, end
		if bs.Before(earliest) {
			bs = earliest
		}
		if be.After(latest) {
			be = latest
		}
		if !bs.Equal(start) || !be.Equal(end) {
			r.logClamp(symbol, start, end, bs, be)
		}
		return bs, be
	}
}

// scanRange derives the range from the partition listing: the minimum
// unix time of the earliest partition and the maximum of the latest.
func (r *BoundaryResolver) scanRange(ctx context.Context, symbol string, source repository.SourceResolution) (time.Time, time.Time, bool) {
	keys, err := r.catalog.AvailableDates(ctx, symbol, source)
	if err != nil {
		r.log.Warn("partition scan for data range failed",
			logger.String("symbol", symbol),
			logger.Error(err))
		return time.Time{}, time.Time{}, false
	}
	if len(keys) == 0 {
		return time.Time{}, time.Time{}, false
	}

	first, ok1 := r.partitionEdge(ctx, symbol, source, keys[0], true)
	last, ok2 := r.partitionEdge(ctx, symbol, source, keys[len(keys)-1], false)
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	return util.StartOfDay(first), util.StartOfDay(last), true
}

// partitionEdge reads one partition and returns its minimum or maximum
// timestamp, relying on the engine's ascending ordering.
func (r *BoundaryResolver) partitionEdge(ctx context.Context, symbol string, source repository.SourceResolution, key string, min bool) (time.Time, bool) {
	anchor, err := partitionKeyDate(key, source)
	if err != nil {
		r.log.Warn("unparseable partition key",
			logger.String("symbol", symbol),
			logger.String("key", key))
		return time.Time{}, false
	}

	paths, err := r.planner.Plan(symbol, anchor, anchor, source)
	if err != nil || len(paths) == 0 {
		return time.Time{}, false
	}

	records, err := r.engine.QueryProjected(ctx, paths, symbol, 0, math.MaxInt64, nil)
	if err != nil {
		r.log.Warn("partition edge read failed",
			logger.String("symbol", symbol),
			logger.String("path", paths[0]),
			logger.Error(err))
		return time.Time{}, false
	}
	if len(records) == 0 {
		return time.Time{}, false
	}
	if min {
		return time.Unix(records[0].UnixTime, 0).UTC(), true
	}
	return time.Unix(records[len(records)-1].UnixTime, 0).UTC(), true
}

func (r *BoundaryResolver) logClamp(symbol string, start, end, bs, be time.Time) {
	r.log.Info("request window clamped to available data",
		logger.String("symbol", symbol),
		logger.String("requested_start", util.FormatDate(start)),
		logger.String("requested_end", util.FormatDate(end)),
		logger.String("bounded_start", util.FormatDate(bs)),
		logger.String("bounded_end", util.FormatDate(be)))
}

// clampWindowDays sizes the replacement window for an out-of-range request.
func clampWindowDays(span int) int {
	switch {
	case span <= 1:
		return 1
	case span <= 30:
		if span > 14 {
			return 14
		}
		return span
	default:
		return 30
	}
}

// partitionKeyDate maps a listing key to a date inside that partition.
func partitionKeyDate(key string, source repository.SourceResolution) (time.Time, error) {
	if source == repository.SourceYearly {
		return util.ParseDate(key + "-01-01")
	}
	return util.ParseDate(key)
}
