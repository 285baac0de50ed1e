package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CandleQuery/internal/domain/repository"
	"CandleQuery/internal/usecase"
	pkgcache "CandleQuery/pkg/cache"
	"CandleQuery/pkg/config"
	xhttp "CandleQuery/pkg/http"
	applogger "CandleQuery/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP observability surface
// plus the query engine and cache it owns.
type App struct {
	cfg         *config.Config
	market      *usecase.MarketDataUseCase
	engine      repository.QueryEngine
	cacheSvc    pkgcache.Service
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	log         *applogger.Logger
}

// New creates the App with all dependencies.
func New(
	cfg *config.Config,
	market *usecase.MarketDataUseCase,
	engine repository.QueryEngine,
	cacheSvc pkgcache.Service,
	handler xhttp.Handler,
	log *applogger.Logger,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:         cfg,
		market:      market,
		engine:      engine,
		cacheSvc:    cacheSvc,
		httpHandler: handler,
		log:         log,
	}
}

// MarketData exposes the query pipeline to embedders.
func (a *App) MarketData() *usecase.MarketDataUseCase { return a.market }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
		xhttp.WithLogger(a.log),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("candle query service started",
		applogger.String("engine", a.cfg.Engine.Type),
		applogger.String("bucket", a.cfg.ObjStore.Bucket),
		applogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.log.Warn("engine close error", applogger.Error(err))
		}
	}

	if a.cacheSvc != nil {
		if err := a.cacheSvc.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
