package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestGovernorValidate(t *testing.T) {
	g := NewGovernor(GovernorConfig{AutoAdjust: true})

	t.Run("within limits", func(t *testing.T) {
		err := g.Validate(day("2024-03-01"), day("2024-03-02"), repository.TF1m)
		assert.NoError(t, err)
	})

	t.Run("record estimate trips before day span", func(t *testing.T) {
		// 40 days of minute bars exceeds both the 50k record estimate and
		// the 30-day span limit; the record form must win.
		err := g.Validate(day("2024-01-01"), day("2024-02-09"), repository.TF1m)
		require.Error(t, err)

		var tooLarge *models.RequestTooLargeError
		require.ErrorAs(t, err, &tooLarge)
		assert.Equal(t, "1m", tooLarge.Timeframe)
		assert.Equal(t, int64(40*1440), tooLarge.EstimatedRecords)
		assert.Equal(t, 50000, tooLarge.MaxLimit)
	})

	t.Run("day span limit", func(t *testing.T) {
		// 4000 daily records stay under the record cap but exceed 3650 days.
		err := g.Validate(day("2013-01-01"), day("2023-12-14"), repository.TF1d)
		require.Error(t, err)

		var tooLarge *models.RequestTooLargeError
		require.ErrorAs(t, err, &tooLarge)
		assert.Zero(t, tooLarge.EstimatedRecords)
		assert.Equal(t, 3650, tooLarge.MaxLimit)
	})
}

func TestGovernorAutoAdjustTimeframe(t *testing.T) {
	g := NewGovernor(GovernorConfig{AutoAdjust: true})

	tests := []struct {
		name  string
		start string
		end   string
		in    repository.Timeframe
		want  repository.Timeframe
	}{
		{"minute short span unchanged", "2024-03-01", "2024-03-10", repository.TF1m, repository.TF1m},
		{"minute over a month becomes hourly", "2024-01-01", "2024-02-29", repository.TF5m, repository.TF1h},
		{"hourly over a year becomes daily", "2022-01-01", "2023-06-01", repository.TF1h, repository.TF1d},
		{"minute over a year becomes daily", "2022-01-01", "2023-06-01", repository.TF1m, repository.TF1d},
		{"daily never adjusted", "2010-01-01", "2019-12-31", repository.TF1d, repository.TF1d},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.AutoAdjustTimeframe(day(tt.start), day(tt.end), tt.in)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("disabled passes through", func(t *testing.T) {
		off := NewGovernor(GovernorConfig{})
		got := off.AutoAdjustTimeframe(day("2022-01-01"), day("2023-06-01"), repository.TF1m)
		assert.Equal(t, repository.TF1m, got)
	})
}

func TestGovernorChooseSource(t *testing.T) {
	g := NewGovernor(GovernorConfig{})

	assert.Equal(t, repository.SourceMinute,
		g.ChooseSource(repository.TF1m, day("2024-03-01"), day("2024-03-05")))
	assert.Equal(t, repository.SourceYearly,
		g.ChooseSource(repository.TF1m, day("2024-03-01"), day("2024-03-20")))
	assert.Equal(t, repository.SourceYearly,
		g.ChooseSource(repository.TF1d, day("2024-03-01"), day("2024-03-02")))
}

func TestGovernorValidateResultSize(t *testing.T) {
	g := NewGovernor(GovernorConfig{MaxRecords: 100})

	assert.NoError(t, g.ValidateResultSize(100))

	err := g.ValidateResultSize(101)
	require.Error(t, err)
	var tooLarge *models.ResultTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 101, tooLarge.RecordCount)
}
