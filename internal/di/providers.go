package di

import (
	"context"
	"fmt"
	"time"

	domrepo "StockCharts/internal/domain/repository"
	"StockCharts/internal/handler/api"
	internalrepo "StockCharts/internal/repository"
	"StockCharts/internal/service/ratelimit"
	"StockCharts/internal/service/warmup"
	"StockCharts/internal/service/yahoo"
	"StockCharts/internal/usecase"
	"StockCharts/pkg/cache"
	pkgch "StockCharts/pkg/clickhouse"
	"StockCharts/pkg/config"
	xhttp "StockCharts/pkg/http"
	pkgkafka "StockCharts/pkg/kafka"
	applogger "StockCharts/pkg/logger"
	"StockCharts/pkg/metrics"
	"StockCharts/pkg/server"
	xutil "StockCharts/pkg/util"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideCache creates the history cache: memory, backed by Redis when
// enabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize),
		cache.WithMemoryTTL(cfg.Cache.TTL),
		cache.WithMemoryCleanup(cfg.Cache.Memory.CleanupInterval),
	)
	if !cfg.Cache.Redis.Enabled {
		return mem, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		cache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		cache.WithRedisPool(cfg.Cache.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(mem, rc), nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns, 0),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHistoryStore creates the ClickHouse bar store and ensures its
// tables. Nil when ClickHouse is disabled.
func ProvideHistoryStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (*internalrepo.CHHistoryStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHHistoryStore(ch, cfg.ClickHouse.BarsTable, cfg.ClickHouse.SymbolsTable, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled. The
// log collector publishes through the same producer.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Log.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			Service:        "stockcharts",
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideEventPublisher publishes chart events to Kafka when enabled.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaChartPublisher(producer, cfg.Kafka.ChartTopic)
}

// ProvideHistorySource picks the upstream history provider.
func ProvideHistorySource(cfg *config.Config, store *internalrepo.CHHistoryStore, l *applogger.Logger) (domrepo.HistoryProvider, error) {
	switch cfg.Provider.Type {
	case config.ProviderClickHouse:
		if store == nil {
			return nil, fmt.Errorf("clickhouse provider needs clickhouse enabled")
		}
		return store, nil
	default:
		start, ok := xutil.ParseTime(cfg.Yahoo.HistoryStart)
		if !ok {
			return nil, fmt.Errorf("yahoo history start %q is not a date", cfg.Yahoo.HistoryStart)
		}
		return yahoo.NewProvider(yahoo.Config{
			HistoryStart: start,
			PricePlaces:  cfg.Yahoo.PricePlaces,
			Timeout:      cfg.Provider.Timeout,
		}, l), nil
	}
}

// ProvideHistoryCache memoizes the source and archives fresh fetches when
// configured.
func ProvideHistoryCache(
	cfg *config.Config,
	source domrepo.HistoryProvider,
	svc cache.Service,
	m domrepo.Metrics,
	store *internalrepo.CHHistoryStore,
	l *applogger.Logger,
) *internalrepo.CachedHistoryProvider {
	opts := []internalrepo.CachedOption{internalrepo.WithLogger(l)}
	if cfg.ClickHouse.Archive && store != nil {
		opts = append(opts, internalrepo.WithArchive(store))
	}
	return internalrepo.NewCachedHistoryProvider(source, svc, cfg.Cache.TTL, m, opts...)
}

// ProvidePipeline builds the chart pipeline from config.
func ProvidePipeline(cfg *config.Config) (*usecase.Pipeline, error) {
	scope, err := usecase.ParseComputeScope(cfg.Pipeline.ComputeScope, usecase.ScopeWindow)
	if err != nil {
		return nil, err
	}
	axes := usecase.AxisConfig{
		PriceOffsetPct: cfg.Pipeline.Axes.PriceOffsetPct,
		VolumeShare:    cfg.Pipeline.Axes.VolumeShare,
	}
	return usecase.NewPipeline(cfg.Pipeline.Indicators, axes, scope), nil
}

// ProvideChartsUseCase creates the chart use case.
func ProvideChartsUseCase(
	cfg *config.Config,
	hc *internalrepo.CachedHistoryProvider,
	pipeline *usecase.Pipeline,
	pub domrepo.EventPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.ChartsUseCase {
	return usecase.NewChartsUseCase(hc, pipeline, pub, m, l, usecase.WithDefaultRange(cfg.Pipeline.DefaultRange))
}

// ProvideLimiter creates the per-client limiter, or nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideResources groups the clients the app closes on shutdown.
func ProvideResources(
	svc cache.Service,
	store *internalrepo.CHHistoryStore,
	pub domrepo.EventPublisher,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) server.Resources {
	res := server.Resources{Cache: svc, Publisher: pub, Producer: producer, ClickHouse: ch}
	if store != nil {
		res.Archive = store
	}
	return res
}

// ProvideHTTPServer creates the Echo server with the chart routes.
func ProvideHTTPServer(
	cfg *config.Config,
	charts *usecase.ChartsUseCase,
	limiter *ratelimit.Limiter,
	res server.Resources,
	l *applogger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithAddr(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Server.SlowThreshold),
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithRateLimiter(limiter))
	}
	for name, check := range server.HealthChecks(res) {
		opts = append(opts, xhttp.WithHealthCheck(name, check))
	}

	h := api.NewChartsEchoHandler(l, charts, cfg.Server.RequestTimeout)
	return xhttp.NewServer(h, l, opts...)
}

// ProvideScheduler creates the cron scheduler for warm-up and limiter
// housekeeping. Nil when neither is enabled.
func ProvideScheduler(
	cfg *config.Config,
	hc *internalrepo.CachedHistoryProvider,
	limiter *ratelimit.Limiter,
	l *applogger.Logger,
) (*warmup.Scheduler, error) {
	if !cfg.Warmup.Enabled && limiter == nil {
		return nil, nil
	}
	var symbols []string
	if cfg.Warmup.Enabled {
		var err error
		if symbols, err = normalizeWatchlist(cfg.Warmup.Symbols); err != nil {
			return nil, err
		}
	}
	s := warmup.New(hc, symbols, cfg.Warmup.Timeout, l)
	if cfg.Warmup.Enabled {
		if err := s.Register(cfg.Warmup.Schedule); err != nil {
			return nil, err
		}
	}
	if limiter != nil {
		idle := cfg.RateLimit.PruneInterval
		schedule := fmt.Sprintf("@every %s", idle)
		if err := s.AddJob("limiter prune", schedule, func() {
			if n := limiter.Prune(idle); n > 0 {
				l.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// normalizeWatchlist puts warm-up symbols in the form requests use, so the
// warmed cache keys match. Duplicates after normalization are dropped.
func normalizeWatchlist(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		sym, err := usecase.NormalizeSymbol(r)
		if err != nil {
			return nil, fmt.Errorf("warmup symbols: %w", err)
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *warmup.Scheduler,
	charts *usecase.ChartsUseCase,
	res server.Resources,
) *server.App {
	return server.New(cfg, l, httpServer, scheduler, charts, res)
}
