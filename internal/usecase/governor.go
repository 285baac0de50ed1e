package usecase

import (
	"time"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/config"
	"CandleQuery/pkg/util"
)

// GovernorConfig bounds request size. Zero-valued fields fall back to the
// shipped defaults.
type GovernorConfig struct {
	MaxRecords          int
	MaxDays             map[string]int
	RecordsPerDay       map[string]float64
	AutoAdjust          bool
	HourlyAfterDays     int
	DailyAfterDays      int
	MinuteSourceMaxDays int
}

// Governor enforces request-size limits before any partition is touched, and
// re-checks the result size afterwards.
type Governor struct {
	cfg GovernorConfig
}

// NewGovernor creates a request governor.
func NewGovernor(cfg GovernorConfig) *Governor {
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = 50000
	}
	if len(cfg.MaxDays) == 0 {
		cfg.MaxDays = config.DefaultMaxDays()
	}
	if len(cfg.RecordsPerDay) == 0 {
		cfg.RecordsPerDay = config.DefaultRecordsPerDay()
	}
	if cfg.HourlyAfterDays == 0 {
		cfg.HourlyAfterDays = 30
	}
	if cfg.DailyAfterDays == 0 {
		cfg.DailyAfterDays = 365
	}
	if cfg.MinuteSourceMaxDays == 0 {
		cfg.MinuteSourceMaxDays = 7
	}
	return &Governor{cfg: cfg}
}

// Validate rejects requests whose estimated output or day span exceeds the
// configured limits. The record estimate is checked first so the caller gets
// the more actionable error when both limits would trip.
func (g *Governor) Validate(start, end time.Time, tf repository.Timeframe) error {
	days := util.DaysBetween(start, end)

	if perDay, ok := g.cfg.RecordsPerDay[string(tf)]; ok {
		estimated := int64(float64(days) * perDay)
		if estimated > int64(g.cfg.MaxRecords) {
			return &models.RequestTooLargeError{
				Timeframe:        string(tf),
				DaysRequested:    days,
				MaxLimit:         g.cfg.MaxRecords,
				EstimatedRecords: estimated,
			}
		}
	}

	if maxDays, ok := g.cfg.MaxDays[string(tf)]; ok && days > maxDays {
		return &models.RequestTooLargeError{
			Timeframe:     string(tf),
			DaysRequested: days,
			MaxLimit:      maxDays,
		}
	}
	return nil
}

// AutoAdjustTimeframe promotes fine-grained timeframes to coarser ones over
// long spans. Minute-level requests become hourly past the hourly threshold;
// any sub-daily request becomes daily past the daily threshold.
func (g *Governor) AutoAdjustTimeframe(start, end time.Time, tf repository.Timeframe) repository.Timeframe {
	if !g.cfg.AutoAdjust {
		return tf
	}

	days := util.DaysBetween(start, end)
	if tf.IsMinuteLevel() && days > g.cfg.HourlyAfterDays {
		tf = repository.TF1h
	}
	if isSubDaily(tf) && days > g.cfg.DailyAfterDays {
		tf = repository.TF1d
	}
	return tf
}

// ChooseSource picks the partition layout touching the fewest files: minute
// timeframes over short spans read the daily layout, everything else reads
// the yearly layout.
func (g *Governor) ChooseSource(tf repository.Timeframe, start, end time.Time) repository.SourceResolution {
	days := util.DaysBetween(start, end)
	if tf.IsMinuteLevel() && days <= g.cfg.MinuteSourceMaxDays {
		return repository.SourceMinute
	}
	return repository.SourceYearly
}

// ValidateResultSize guards against aggregation over-producing relative to
// the pre-query estimate.
func (g *Governor) ValidateResultSize(records int) error {
	if records > g.cfg.MaxRecords {
		return &models.ResultTooLargeError{
			RecordCount: records,
			MaxRecords:  g.cfg.MaxRecords,
		}
	}
	return nil
}

func isSubDaily(tf repository.Timeframe) bool {
	return tf.IntervalSeconds() < repository.TF1d.IntervalSeconds()
}
