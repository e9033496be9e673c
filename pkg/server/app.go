package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "StockCharts/internal/domain/repository"
	"StockCharts/internal/service/warmup"
	"StockCharts/internal/usecase"
	"StockCharts/pkg/cache"
	pkgch "StockCharts/pkg/clickhouse"
	"StockCharts/pkg/config"
	xhttp "StockCharts/pkg/http"
	pkgkafka "StockCharts/pkg/kafka"
	applogger "StockCharts/pkg/logger"
)

// Resources are the infrastructure clients the app owns. Nil members were
// disabled in config.
type Resources struct {
	Cache      cache.Service
	Archive    domrepo.HistoryArchive
	Publisher  domrepo.EventPublisher
	Producer   *pkgkafka.Producer
	ClickHouse *pkgch.Client
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *warmup.Scheduler
	charts     *usecase.ChartsUseCase
	res        Resources
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *warmup.Scheduler,
	charts *usecase.ChartsUseCase,
	res Resources,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		scheduler:  scheduler,
		charts:     charts,
		res:        res,
	}
}

// Charts exposes the chart use case for one-shot commands.
func (a *App) Charts() *usecase.ChartsUseCase { return a.charts }

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.l }

// Run starts the application and blocks until interrupted or the HTTP
// server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.scheduler != nil {
		a.scheduler.Start()
		if a.cfg.Warmup.Enabled && a.cfg.Warmup.OnStart {
			go a.scheduler.RunNow(ctx)
		}
	}

	errCh := a.httpServer.Start()
	a.l.Info("stockcharts started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("addr", a.httpServer.Addr()),
		applogger.String("provider", a.cfg.Provider.Type),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			a.l.Error("http server error", applogger.Error(err))
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.l.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	a.Close()
	return runErr
}

// Close releases infrastructure clients. The log collector is drained
// before the producer it publishes through is closed.
func (a *App) Close() {
	a.l.Info("shutting down...")

	if a.res.Publisher != nil {
		if err := a.res.Publisher.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}
	a.l.RemoveCollector()
	if a.res.Producer != nil {
		if err := a.res.Producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.res.Archive != nil {
		if err := a.res.Archive.Close(); err != nil {
			a.l.Warn("archive close error", applogger.Error(err))
		}
	}
	if a.res.ClickHouse != nil {
		if err := a.res.ClickHouse.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.res.Cache != nil {
		if err := a.res.Cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
}

// HealthChecks returns probes for the enabled dependencies.
func HealthChecks(res Resources) map[string]xhttp.HealthCheck {
	checks := map[string]xhttp.HealthCheck{}
	if res.ClickHouse != nil {
		checks["clickhouse"] = res.ClickHouse.Health
	}
	if res.Cache != nil {
		c := res.Cache
		checks["cache"] = func(ctx context.Context) error {
			_, err := c.Exists(ctx, "health")
			return err
		}
	}
	return checks
}
