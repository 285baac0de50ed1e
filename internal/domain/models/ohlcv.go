package models

import "time"

// OHLCVRecord is one aggregated price-and-volume observation over an interval.
// UnixTime is the authoritative sort/bucket key; Timestamp is its UTC rendering.
type OHLCVRecord struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	UnixTime  int64     `json:"unix_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// OHLCVResponse is the wire shape returned for a query.
type OHLCVResponse struct {
	Symbol           string        `json:"symbol"`
	Timeframe        string        `json:"timeframe"`
	SourceResolution string        `json:"source_resolution"`
	StartDate        string        `json:"start_date"`
	EndDate          string        `json:"end_date"`
	Count            int           `json:"count"`
	Data             []OHLCVRecord `json:"data"`
}

// OHLCVRequest carries query parameters. Defaults and validation follow
// the tags; see usecase.ValidateRequest.
type OHLCVRequest struct {
	Symbol           string `json:"symbol" validate:"required,alphanum,uppercase,max=16"`
	StartDate        string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Timeframe        string `json:"timeframe" default:"1d" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1w 1M 1Y"`
	// SourceResolution left empty lets the engine pick the cheaper layout.
	SourceResolution string `json:"source_resolution" validate:"omitempty,oneof=1m 1Y"`
}

// SourceRange is the available window for one source resolution.
type SourceRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// DataRange describes a symbol's available data, optionally split per source.
type DataRange struct {
	Earliest string                 `json:"earliest"`
	Latest   string                 `json:"latest"`
	Sources  map[string]SourceRange `json:"sources,omitempty"`
}

// InstrumentMetadata is one entry of the metadata/instruments.json blob.
type InstrumentMetadata struct {
	Symbol      string     `json:"symbol"`
	Exchange    string     `json:"exchange"`
	Market      string     `json:"market"`
	Name        string     `json:"name"`
	ShortName   string     `json:"shortName"`
	Ticker      string     `json:"ticker"`
	Type        string     `json:"type"`
	Currency    string     `json:"currency"`
	Description string     `json:"description"`
	Sector      string     `json:"sector"`
	Country     string     `json:"country"`
	DataRange   *DataRange `json:"dataRange,omitempty"`
}

// StorageStructureInfo summarizes one partition layout.
type StorageStructureInfo struct {
	SourceResolution string                       `json:"source_resolution"`
	TotalFiles       int                          `json:"total_files"`
	TotalSizeBytes   int64                        `json:"total_size_bytes"`
	SymbolCount      int                          `json:"symbol_count"`
	Symbols          []string                     `json:"symbols"`
	DateRanges       map[string]map[string]string `json:"date_ranges"`
}

// SourceComparison is the outcome of running the same query against both
// source layouts.
type SourceComparison struct {
	Results            map[string]SourceRunResult `json:"results"`
	ImprovementPercent *float64                   `json:"performance_improvement_percent,omitempty"`
}

// SourceRunResult is one side of a source comparison run.
type SourceRunResult struct {
	DurationSeconds *float64 `json:"duration_seconds"`
	RecordCount     int      `json:"record_count"`
	Success         bool     `json:"success"`
	Error           string   `json:"error,omitempty"`
}
