package repository

import (
	"sort"
	"time"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
)

// aggregateBuckets folds raw rows into fixed-width OHLCV buckets keyed by
// floor(unix_time/interval)*interval. Input order does not matter; output is
// ascending by bucket start. Open comes from the earliest row of the bucket,
// close from the latest, high/low/volume from the whole bucket.
func aggregateBuckets(rows []models.OHLCVRecord, intervalSeconds int64) []models.OHLCVRecord {
	if intervalSeconds == repository.YearIntervalSeconds {
		return aggregateCalendarYears(rows)
	}
	if len(rows) == 0 {
		return nil
	}

	sortByUnixTime(rows)

	var out []models.OHLCVRecord
	for _, row := range rows {
		bucket := (row.UnixTime / intervalSeconds) * intervalSeconds
		if len(out) == 0 || out[len(out)-1].UnixTime != bucket {
			out = append(out, models.OHLCVRecord{
				Symbol:    row.Symbol,
				Timestamp: time.Unix(bucket, 0).UTC(),
				UnixTime:  bucket,
				Open:      row.Open,
				High:      row.High,
				Low:       row.Low,
				Close:     row.Close,
				Volume:    row.Volume,
			})
			continue
		}

		cur := &out[len(out)-1]
		if row.High > cur.High {
			cur.High = row.High
		}
		if row.Low < cur.Low {
			cur.Low = row.Low
		}
		cur.Close = row.Close
		cur.Volume += row.Volume
	}
	return out
}

// aggregateCalendarYears folds rows into one bucket per UTC calendar year.
// Each bucket is anchored at the earliest unix time observed in that year
// rather than a fixed 365-day grid, so leap years stay aligned.
func aggregateCalendarYears(rows []models.OHLCVRecord) []models.OHLCVRecord {
	if len(rows) == 0 {
		return nil
	}

	sortByUnixTime(rows)

	years := make(map[int]int) // year -> index into out
	var out []models.OHLCVRecord
	for _, row := range rows {
		year := time.Unix(row.UnixTime, 0).UTC().Year()
		idx, seen := years[year]
		if !seen {
			years[year] = len(out)
			out = append(out, models.OHLCVRecord{
				Symbol:    row.Symbol,
				Timestamp: time.Unix(row.UnixTime, 0).UTC(),
				UnixTime:  row.UnixTime,
				Open:      row.Open,
				High:      row.High,
				Low:       row.Low,
				Close:     row.Close,
				Volume:    row.Volume,
			})
			continue
		}

		cur := &out[idx]
		if row.High > cur.High {
			cur.High = row.High
		}
		if row.Low < cur.Low {
			cur.Low = row.Low
		}
		cur.Close = row.Close
		cur.Volume += row.Volume
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UnixTime < out[j].UnixTime })
	return out
}

func sortByUnixTime(rows []models.OHLCVRecord) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].UnixTime < rows[j].UnixTime })
}
