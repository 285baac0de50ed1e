package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	pkgcache "CandleQuery/pkg/cache"
	"CandleQuery/pkg/logger"
	"CandleQuery/pkg/util"
)

// Option configures the market data cache.
type Option func(*MarketDataCache)

// WithClock sets the time source used to decide expiry policy.
func WithClock(now func() time.Time) Option {
	return func(c *MarketDataCache) {
		c.now = now
	}
}

// WithCurrentDayTTL overrides the ttl applied to ranges touching today.
func WithCurrentDayTTL(ttl time.Duration) Option {
	return func(c *MarketDataCache) {
		c.currentDayTTL = ttl
	}
}

// MarketDataCache stores query results in the layered cache. Ranges ending
// before today are immutable and cached without expiry; ranges touching the
// current UTC day get a short ttl so fresh bars show up. Cache trouble is
// logged and absorbed, never surfaced to the request.
type MarketDataCache struct {
	cache         pkgcache.Service
	log           *logger.Logger
	now           func() time.Time
	currentDayTTL time.Duration
}

// NewMarketDataCache creates the result cache.
func NewMarketDataCache(c pkgcache.Service, log *logger.Logger, opts ...Option) *MarketDataCache {
	mdc := &MarketDataCache{
		cache:         c,
		log:           log,
		now:           time.Now,
		currentDayTTL: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(mdc)
	}
	return mdc
}

func (c *MarketDataCache) GetOHLCV(ctx context.Context, symbol string, tf repository.Timeframe, startUnix, endUnix int64) ([]models.OHLCVRecord, bool) {
	key := c.key(symbol, tf, startUnix, endUnix)

	var raw string
	if err := c.cache.Get(ctx, key, &raw); err != nil {
		if err != pkgcache.ErrCacheMiss {
			c.log.Warn("ohlcv cache read failed",
				logger.String("key", key),
				logger.Error(err),
			)
		}
		return nil, false
	}

	var data []models.OHLCVRecord
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.log.Warn("ohlcv cache entry malformed",
			logger.String("key", key),
			logger.Error(err),
		)
		return nil, false
	}
	return data, true
}

func (c *MarketDataCache) SetOHLCV(ctx context.Context, symbol string, tf repository.Timeframe, startUnix, endUnix int64, data []models.OHLCVRecord) {
	key := c.key(symbol, tf, startUnix, endUnix)

	payload, err := json.Marshal(data)
	if err != nil {
		c.log.Warn("ohlcv cache marshal failed",
			logger.String("key", key),
			logger.Error(err),
		)
		return
	}

	if err := c.cache.Set(ctx, key, string(payload), c.ttl(endUnix)); err != nil {
		c.log.Warn("ohlcv cache write failed",
			logger.String("key", key),
			logger.Error(err),
		)
	}
}

// ttl returns 0 (no expiry) for fully historical ranges.
func (c *MarketDataCache) ttl(endUnix int64) time.Duration {
	todayStart := util.StartOfDayUnix(c.now())
	if endUnix >= todayStart {
		return c.currentDayTTL
	}
	return 0
}

func (c *MarketDataCache) key(symbol string, tf repository.Timeframe, startUnix, endUnix int64) string {
	rangeHash := pkgcache.ShortHashKey(fmt.Sprintf("%d:%d", startUnix, endUnix), 8)
	return pkgcache.GenerateKeyWithParams("ohlcv", symbol, tf, rangeHash)
}
