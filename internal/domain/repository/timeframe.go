package repository

// Timeframe is the requested output aggregation granularity.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
	TF1M  Timeframe = "1M"
	TF1Y  Timeframe = "1Y"
)

// YearIntervalSeconds marks the calendar-year aggregation special case:
// buckets follow calendar years instead of fixed-interval flooring.
const YearIntervalSeconds int64 = 31536000

var intervalSeconds = map[Timeframe]int64{
	TF1m:  60,
	TF5m:  300,
	TF15m: 900,
	TF30m: 1800,
	TF1h:  3600,
	TF4h:  14400,
	TF1d:  86400,
	TF1w:  604800,
	TF1M:  2592000, // month approximated as 30 days
	TF1Y:  YearIntervalSeconds,
}

// Timeframes lists the supported tokens in ascending interval order.
func Timeframes() []Timeframe {
	return []Timeframe{TF1m, TF5m, TF15m, TF30m, TF1h, TF4h, TF1d, TF1w, TF1M, TF1Y}
}

// IntervalSeconds returns the fixed interval length for tf, defaulting to one
// day for unknown tokens.
func (tf Timeframe) IntervalSeconds() int64 {
	if s, ok := intervalSeconds[tf]; ok {
		return s
	}
	return 86400
}

// IsMinuteLevel reports whether tf aggregates below the hour.
func (tf Timeframe) IsMinuteLevel() bool {
	switch tf {
	case TF1m, TF5m, TF15m, TF30m:
		return true
	default:
		return false
	}
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := intervalSeconds[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1d }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
// Tokens are case-sensitive: 1m is minutes, 1M is months.
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// SourceResolution is the granularity of the stored partitions, distinct from
// the requested output timeframe.
type SourceResolution string

const (
	// SourceMinute stores one file per calendar day of minute bars.
	SourceMinute SourceResolution = "1m"
	// SourceYearly stores one file per calendar year.
	SourceYearly SourceResolution = "1Y"
)

// IsValidSourceResolution returns true for a supported source layout.
func IsValidSourceResolution(sr SourceResolution) bool {
	return sr == SourceMinute || sr == SourceYearly
}

// SourceResolutions lists the supported source layouts.
func SourceResolutions() []SourceResolution {
	return []SourceResolution{SourceMinute, SourceYearly}
}
