package di

import (
	"fmt"

	"CandleQuery/internal/domain/repository"
	"CandleQuery/internal/handler/api"
	internalrepo "CandleQuery/internal/repository"
	icache "CandleQuery/internal/service/cache"
	"CandleQuery/internal/service/catalog"
	"CandleQuery/internal/service/metadata"
	"CandleQuery/internal/service/monitor"
	"CandleQuery/internal/usecase"
	pkgcache "CandleQuery/pkg/cache"
	pkgch "CandleQuery/pkg/clickhouse"
	"CandleQuery/pkg/config"
	xhttp "CandleQuery/pkg/http"
	applogger "CandleQuery/pkg/logger"
	"CandleQuery/pkg/metrics"
	"CandleQuery/pkg/objstore"
	"CandleQuery/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideObjStoreClient creates the S3-compatible object store client.
func ProvideObjStoreClient(cfg *config.Config) (*objstore.Client, error) {
	client, err := objstore.NewClient(
		objstore.WithEndpoint(cfg.ObjStore.Endpoint),
		objstore.WithRegion(cfg.ObjStore.Region),
		objstore.WithCredentials(cfg.ObjStore.AccessKey, cfg.ObjStore.SecretKey),
		objstore.WithSSL(cfg.ObjStore.UseSSL),
		objstore.WithBucket(cfg.ObjStore.Bucket),
		objstore.WithRequestTimeout(cfg.ObjStore.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("objstore client: %w", err)
	}
	return client, nil
}

// ProvideObjectStore adapts the client to the domain interface.
func ProvideObjectStore(client *objstore.Client) repository.ObjectStore {
	return internalrepo.NewObjStoreGateway(client)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCacheService builds the layered cache: Redis primary when enabled,
// in-process memory always.
func ProvideCacheService(cfg *config.Config, log *applogger.Logger) pkgcache.Service {
	var redisCache *pkgcache.RedisCache
	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Redis.Host),
			pkgcache.WithRedisPort(cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			// Cache trouble never blocks startup; the memory tier still serves.
			log.Warn("redis unavailable, memory cache only", applogger.Error(err))
		} else {
			redisCache = rc
		}
	}
	return pkgcache.NewLayeredCache(redisCache,
		pkgcache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize))
}

// ProvideMarketDataCache wraps the cache service with OHLCV keying and the
// current-day TTL policy.
func ProvideMarketDataCache(svc pkgcache.Service, cfg *config.Config, log *applogger.Logger) repository.MarketDataCache {
	return icache.NewMarketDataCache(svc, log,
		icache.WithCurrentDayTTL(cfg.Cache.CurrentDayTTL))
}

// ProvideQueryEngine selects the configured engine implementation.
func ProvideQueryEngine(cfg *config.Config, store repository.ObjectStore, log *applogger.Logger, m repository.Metrics) (repository.QueryEngine, error) {
	switch cfg.Engine.Type {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Engine.ClickHouse.Host),
			pkgch.WithPort(cfg.Engine.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Engine.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Engine.ClickHouse.User, cfg.Engine.ClickHouse.Password),
			pkgch.WithTimeouts(cfg.Engine.ClickHouse.DialTimeout, cfg.Engine.ClickHouse.ReadTimeout, cfg.Engine.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.Engine.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		loc := internalrepo.S3Location{
			Endpoint:  cfg.ObjStore.Endpoint,
			Bucket:    cfg.ObjStore.Bucket,
			AccessKey: cfg.ObjStore.AccessKey,
			SecretKey: cfg.ObjStore.SecretKey,
			UseSSL:    cfg.ObjStore.UseSSL,
		}
		return internalrepo.NewClickHouseEngine(client, loc, log, m), nil
	case "parquet", "":
		return internalrepo.NewParquetEngine(store, log, m), nil
	default:
		return nil, fmt.Errorf("unknown engine type: %s", cfg.Engine.Type)
	}
}

// ProvidePathPlanner creates the partition path planner.
func ProvidePathPlanner() repository.PathPlanner {
	return internalrepo.NewPartitionPlanner()
}

// ProvideMonitor creates the in-process performance monitor.
func ProvideMonitor(log *applogger.Logger, m repository.Metrics) *monitor.PerformanceMonitor {
	return monitor.New(log, m)
}

// ProvideMetadataService creates the instrument metadata catalog.
func ProvideMetadataService(store repository.ObjectStore, cfg *config.Config, log *applogger.Logger) *metadata.Service {
	return metadata.New(store, log, metadata.WithTTL(cfg.Cache.MetadataTTL))
}

// ProvideCatalogService creates the storage structure catalog.
func ProvideCatalogService(store repository.ObjectStore, log *applogger.Logger) *catalog.Service {
	return catalog.New(store, log)
}

// ProvideBoundaryResolver creates the data-range clamping resolver.
func ProvideBoundaryResolver(meta *metadata.Service, cat *catalog.Service, engine repository.QueryEngine, planner repository.PathPlanner, log *applogger.Logger) *usecase.BoundaryResolver {
	return usecase.NewBoundaryResolver(meta, cat, engine, planner, log)
}

// ProvideGovernor creates the request governor from the configured limits.
func ProvideGovernor(cfg *config.Config) *usecase.Governor {
	return usecase.NewGovernor(usecase.GovernorConfig{
		MaxRecords:          cfg.Limits.MaxRecords,
		MaxDays:             cfg.Limits.MaxDays,
		RecordsPerDay:       cfg.Limits.RecordsPerDay,
		AutoAdjust:          cfg.Limits.AutoAdjust.Enabled,
		HourlyAfterDays:     cfg.Limits.AutoAdjust.HourlyAfterDays,
		DailyAfterDays:      cfg.Limits.AutoAdjust.DailyAfterDays,
		MinuteSourceMaxDays: cfg.Limits.MinuteSourceMaxDays,
	})
}

// ProvideMarketDataUseCase wires the full query pipeline.
func ProvideMarketDataUseCase(
	gov *usecase.Governor,
	boundary *usecase.BoundaryResolver,
	planner repository.PathPlanner,
	store repository.ObjectStore,
	engine repository.QueryEngine,
	cache repository.MarketDataCache,
	mon *monitor.PerformanceMonitor,
	log *applogger.Logger,
) *usecase.MarketDataUseCase {
	return usecase.NewMarketDataUseCase(gov, boundary, planner, store, engine, cache, mon, log)
}

// ProvideSystemHandler creates the observability HTTP handler.
func ProvideSystemHandler(log *applogger.Logger, store repository.ObjectStore, mon *monitor.PerformanceMonitor) xhttp.Handler {
	return api.NewSystemEchoHandler(log, store, mon)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	market *usecase.MarketDataUseCase,
	engine repository.QueryEngine,
	cacheSvc pkgcache.Service,
	handler xhttp.Handler,
	log *applogger.Logger,
) *server.App {
	return server.New(cfg, market, engine, cacheSvc, handler, log)
}
