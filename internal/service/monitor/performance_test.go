package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleQuery/pkg/logger"
)

func TestTrackingAccumulates(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := New(logger.Nop(), nil, WithClock(func() time.Time { return now }))

	tr := m.StartQuery("aggregated", "BTC")
	now = now.Add(100 * time.Millisecond)
	tr.Complete(500, false, 2048)

	tr = m.StartQuery("aggregated", "BTC")
	now = now.Add(300 * time.Millisecond)
	tr.Complete(1500, true, 0)

	s := m.GetSummary()
	require.Contains(t, s.QueryTypes, "aggregated")
	agg := s.QueryTypes["aggregated"]
	assert.Equal(t, int64(2), agg.TotalQueries)
	assert.Equal(t, 200.0, agg.AvgDurationMs)
	assert.Equal(t, 1000.0, agg.AvgRecords)

	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(1), s.CacheMisses)
	assert.Equal(t, 50.0, s.HitRatePercent)
}

func TestCacheHitRateEmpty(t *testing.T) {
	m := New(logger.Nop(), nil)
	assert.Equal(t, 0.0, m.CacheHitRate())
}

func TestReset(t *testing.T) {
	m := New(logger.Nop(), nil)
	m.StartQuery("raw", "BTC").Complete(10, true, 0)

	m.Reset()

	s := m.GetSummary()
	assert.Empty(t, s.QueryTypes)
	assert.Equal(t, int64(0), s.CacheHits)
	assert.Equal(t, 0.0, m.CacheHitRate())
}

func TestConcurrentRecording(t *testing.T) {
	m := New(logger.Nop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.StartQuery("raw", "BTC").Complete(1, false, 1)
			m.RecordPartialRecovery("BTC", 10, 8)
		}()
	}
	wg.Wait()

	s := m.GetSummary()
	assert.Equal(t, int64(50), s.QueryTypes["raw"].TotalQueries)
	assert.Equal(t, int64(50), s.CacheMisses)
}
