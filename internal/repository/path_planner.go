package repository

import (
	"fmt"
	"time"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/util"
)

// PartitionPlanner builds the object store paths covering a date range.
// Pure path construction, no I/O.
type PartitionPlanner struct{}

// NewPartitionPlanner creates a path planner.
func NewPartitionPlanner() *PartitionPlanner {
	return &PartitionPlanner{}
}

// Plan enumerates the partition files for [startDate, endDate] inclusive,
// ascending. Daily layout emits one path per calendar day, yearly layout one
// per calendar year.
func (p *PartitionPlanner) Plan(symbol string, startDate, endDate time.Time, source repository.SourceResolution) ([]string, error) {
	if symbol == "" {
		return nil, fmt.Errorf("plan: symbol is required")
	}
	if !repository.IsValidSourceResolution(source) {
		available := make([]string, 0, 2)
		for _, sr := range repository.SourceResolutions() {
			available = append(available, string(sr))
		}
		return nil, &models.InvalidSourceResolutionError{
			SourceResolution: string(source),
			Available:        available,
		}
	}

	start := util.StartOfDay(startDate)
	end := util.StartOfDay(endDate)
	if start.After(end) {
		return nil, models.ErrEmptyRange
	}

	switch source {
	case repository.SourceYearly:
		return p.yearlyPaths(symbol, start, end), nil
	default:
		return p.dailyPaths(symbol, start, end), nil
	}
}

func (p *PartitionPlanner) dailyPaths(symbol string, start, end time.Time) []string {
	paths := make([]string, 0, util.DaysBetween(start, end))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := util.FormatDate(d)
		paths = append(paths, fmt.Sprintf("ohlcv/%s/symbol=%s/date=%s/%s_%s.parquet",
			repository.SourceMinute, symbol, date, symbol, date))
	}
	return paths
}

func (p *PartitionPlanner) yearlyPaths(symbol string, start, end time.Time) []string {
	paths := make([]string, 0, end.Year()-start.Year()+1)
	for y := start.Year(); y <= end.Year(); y++ {
		paths = append(paths, fmt.Sprintf("ohlcv/%s/symbol=%s/year=%d/%s_%d.parquet",
			repository.SourceYearly, symbol, y, symbol, y))
	}
	return paths
}
