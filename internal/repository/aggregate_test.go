package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
)

func bar(unixTime int64, open, high, low, closep, volume float64) models.OHLCVRecord {
	return models.OHLCVRecord{
		Symbol:    "BTC",
		Timestamp: time.Unix(unixTime, 0).UTC(),
		UnixTime:  unixTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closep,
		Volume:    volume,
	}
}

func TestAggregateBucketsFloorAlignment(t *testing.T) {
	// Three 1-minute bars falling into two 5-minute buckets.
	rows := []models.OHLCVRecord{
		bar(300, 10, 12, 9, 11, 100),  // bucket 300
		bar(360, 11, 15, 11, 14, 50),  // bucket 300
		bar(600, 14, 16, 13, 15, 200), // bucket 600
	}

	out := aggregateBuckets(rows, 300)
	require.Len(t, out, 2)

	assert.Equal(t, int64(300), out[0].UnixTime)
	assert.Equal(t, 10.0, out[0].Open)
	assert.Equal(t, 15.0, out[0].High)
	assert.Equal(t, 9.0, out[0].Low)
	assert.Equal(t, 14.0, out[0].Close)
	assert.Equal(t, 150.0, out[0].Volume)

	assert.Equal(t, int64(600), out[1].UnixTime)
	assert.Equal(t, 200.0, out[1].Volume)
}

func TestAggregateBucketsUnsortedInput(t *testing.T) {
	// Open must come from the earliest row, close from the latest,
	// regardless of input order.
	rows := []models.OHLCVRecord{
		bar(360, 11, 15, 11, 14, 50),
		bar(300, 10, 12, 9, 11, 100),
	}

	out := aggregateBuckets(rows, 300)
	require.Len(t, out, 1)
	assert.Equal(t, 10.0, out[0].Open)
	assert.Equal(t, 14.0, out[0].Close)
}

func TestAggregateBucketsTimestampMatchesBucket(t *testing.T) {
	rows := []models.OHLCVRecord{bar(90061, 1, 1, 1, 1, 1)}

	out := aggregateBuckets(rows, 3600)
	require.Len(t, out, 1)
	assert.Equal(t, int64(90000), out[0].UnixTime)
	assert.Equal(t, time.Unix(90000, 0).UTC(), out[0].Timestamp)
}

func TestAggregateBucketsEmpty(t *testing.T) {
	assert.Nil(t, aggregateBuckets(nil, 300))
}

func TestAggregateCalendarYears(t *testing.T) {
	jan2017 := time.Date(2017, 1, 3, 9, 30, 0, 0, time.UTC).Unix()
	jul2017 := time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC).Unix()
	feb2018 := time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC).Unix()

	rows := []models.OHLCVRecord{
		bar(jul2017, 20, 25, 18, 22, 10),
		bar(jan2017, 10, 12, 9, 11, 5),
		bar(feb2018, 30, 35, 28, 33, 7),
	}

	out := aggregateBuckets(rows, repository.YearIntervalSeconds)
	require.Len(t, out, 2)

	// 2017 bucket is anchored at its earliest row, not a fixed grid.
	assert.Equal(t, jan2017, out[0].UnixTime)
	assert.Equal(t, 10.0, out[0].Open)
	assert.Equal(t, 25.0, out[0].High)
	assert.Equal(t, 9.0, out[0].Low)
	assert.Equal(t, 22.0, out[0].Close)
	assert.Equal(t, 15.0, out[0].Volume)

	assert.Equal(t, feb2018, out[1].UnixTime)
	assert.Equal(t, 30.0, out[1].Open)
}

func TestAggregateCalendarYearsNoGapAtBoundary(t *testing.T) {
	dec31 := time.Date(2017, 12, 31, 23, 59, 0, 0, time.UTC).Unix()
	jan1 := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	rows := []models.OHLCVRecord{
		bar(dec31, 1, 1, 1, 1, 1),
		bar(jan1, 2, 2, 2, 2, 2),
	}

	out := aggregateBuckets(rows, repository.YearIntervalSeconds)
	require.Len(t, out, 2)
	assert.Equal(t, dec31, out[0].UnixTime)
	assert.Equal(t, jan1, out[1].UnixTime)
}
