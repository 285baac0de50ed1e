package models

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectNotFound marks the "missing file" error class that the
	// executors absorb during partial recovery.
	ErrObjectNotFound = errors.New("object not found")

	// ErrUpstreamUnavailable means the object store or metadata store could
	// not be reached at all. Fatal for the current request, never retried here.
	ErrUpstreamUnavailable = errors.New("upstream storage unavailable")

	// ErrEmptyRange is returned when a request's start date is after its end
	// date, so callers can tell a malformed request from "no data".
	ErrEmptyRange = errors.New("start date is after end date")
)

// RequestTooLargeError is raised pre-execution when a request's day span or
// estimated record count exceeds the configured limits.
type RequestTooLargeError struct {
	Timeframe        string
	DaysRequested    int
	MaxLimit         int
	EstimatedRecords int64
}

func (e *RequestTooLargeError) Error() string {
	if e.EstimatedRecords > 0 {
		return fmt.Sprintf(
			"request would return too many records (~%d) for %s timeframe; maximum allowed: %d records; reduce date range or use a larger timeframe",
			e.EstimatedRecords, e.Timeframe, e.MaxLimit)
	}
	return fmt.Sprintf(
		"date range too large for %s timeframe; requested %d days, maximum allowed: %d days; use a larger timeframe for longer historical periods",
		e.Timeframe, e.DaysRequested, e.MaxLimit)
}

// ResultTooLargeError is raised post-execution when the result still exceeds
// the global record cap. Distinct from RequestTooLargeError: it catches cases
// the pre-check underestimated.
type ResultTooLargeError struct {
	RecordCount int
	MaxRecords  int
}

func (e *ResultTooLargeError) Error() string {
	return fmt.Sprintf("result too large: %d records, maximum: %d records", e.RecordCount, e.MaxRecords)
}

// NoPartitionsError means no partition files exist for the requested
// symbol/range at all, as opposed to readable-but-empty files.
type NoPartitionsError struct {
	Symbol           string
	SourceResolution string
	StartDate        string
	EndDate          string
}

func (e *NoPartitionsError) Error() string {
	return fmt.Sprintf("no data partitions for symbol %s (%s) between %s and %s",
		e.Symbol, e.SourceResolution, e.StartDate, e.EndDate)
}

// InvalidTimeframeError reports an unsupported timeframe token.
type InvalidTimeframeError struct {
	Timeframe string
	Available []string
}

func (e *InvalidTimeframeError) Error() string {
	return fmt.Sprintf("invalid timeframe: %s, must be one of %v", e.Timeframe, e.Available)
}

// InvalidSourceResolutionError reports an unsupported source resolution token.
type InvalidSourceResolutionError struct {
	SourceResolution string
	Available        []string
}

func (e *InvalidSourceResolutionError) Error() string {
	return fmt.Sprintf("invalid source resolution: %s, must be one of %v", e.SourceResolution, e.Available)
}
