package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"GlucoPlot/internal/domain/repository"
	domsvc "GlucoPlot/internal/domain/service"
	"GlucoPlot/internal/handler/api"
	mid "GlucoPlot/internal/middleware"
	internalrepo "GlucoPlot/internal/repository"
	"GlucoPlot/internal/scheduler"
	"GlucoPlot/internal/service/ratelimit"
	"GlucoPlot/internal/services/render"
	"GlucoPlot/internal/usecase"
	"GlucoPlot/pkg/cache"
	pkgch "GlucoPlot/pkg/clickhouse"
	"GlucoPlot/pkg/config"
	xhttp "GlucoPlot/pkg/http"
	pkgkafka "GlucoPlot/pkg/kafka"
	applogger "GlucoPlot/pkg/logger"
	"GlucoPlot/pkg/metrics"
	"GlucoPlot/pkg/queue"
	"GlucoPlot/pkg/server"
)

const (
	initTimeout  = 10 * time.Second
	liveBacklog  = 36
	queueRetries = 3
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEventStore opens the configured event store and ensures its tables.
func ProvideEventStore(cfg *config.Config, l *applogger.Logger) (repository.EventStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var (
		store   repository.EventStore
		cleanup func()
	)
	switch cfg.Store.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(ctx,
			pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithPool(10, 5, 0),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store = internalrepo.NewCHEventStore(client, l)
		cleanup = func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
	default:
		s, err := internalrepo.NewSQLiteEventStore(cfg.Store.SQLitePath, l)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		store = s
		cleanup = func() {
			if err := s.Close(); err != nil {
				l.Warn("sqlite close error", applogger.Error(err))
			}
		}
	}

	if err := store.Init(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%s schema: %w", cfg.Store.Backend, err)
	}
	l.Info("event store ready", applogger.String("backend", cfg.Store.Backend))
	return store, cleanup, nil
}

// ProvideRedisClient connects to Redis. It returns nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc.Client(), func() { _ = rc.Close() }, nil
}

// ProvideCacheStore layers an in-process LRU over Redis, or uses the LRU
// alone when Redis is disabled.
func ProvideCacheStore(cfg *config.Config, client *redis.Client) (cache.Store, func()) {
	var s cache.Store
	if client != nil {
		s = cache.NewLayeredCache(
			cache.NewRedisCacheFromClient(client, cfg.Redis.Prefix),
			cache.WithLayeredMemorySize(cfg.Redis.MemorySize),
		)
	} else {
		s = cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.MemorySize))
	}
	return s, func() { _ = s.Close() }
}

// ProvideBlobStore keeps rendered plots in the cache store.
func ProvideBlobStore(cfg *config.Config, s cache.Store) repository.BlobStore {
	return internalrepo.NewCacheBlobStore(s, cfg.Redis.BlobTTL)
}

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(-1),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher announces finished plots on Kafka, or drops them.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) (repository.Publisher, func()) {
	var pub repository.Publisher = internalrepo.NopPublisher{}
	if producer != nil {
		pub = internalrepo.NewKafkaPublisher(producer, cfg.Kafka.PlotsTopic)
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
}

// ProvideKafkaConsumer creates the events consumer. It returns nil when Kafka
// is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRenderer returns the PNG chart renderer.
func ProvideRenderer() domsvc.ChartRenderer {
	return render.NewGoChart()
}

// ProvidePlotterConfig maps config onto the chart engine settings.
func ProvidePlotterConfig(cfg *config.Config) (usecase.PlotterConfig, error) {
	days, err := cfg.WeekdaySet()
	if err != nil {
		return usecase.PlotterConfig{}, err
	}
	return usecase.PlotterConfig{
		Thresholds:  cfg.Glucose,
		Location:    cfg.Location(),
		Layout:      cfg.Plot.Layout,
		Weekdays:    days,
		WeekStart:   cfg.WeekStart(),
		OrderPolicy: cfg.OrderPolicy(),
		DailyHours:  cfg.Plot.DailyHours,
		Width:       cfg.Plot.Width,
		Height:      cfg.Plot.Height,
		CacheTTL:    cfg.Plot.CacheTTL,
	}, nil
}

// ProvidePlotter creates the plotter use case.
func ProvidePlotter(
	pc usecase.PlotterConfig,
	events repository.EventStore,
	blobs repository.BlobStore,
	renderer domsvc.ChartRenderer,
	pub repository.Publisher,
	m repository.Metrics,
	s cache.Store,
	l *applogger.Logger,
) *usecase.PlotterUseCase {
	return usecase.NewPlotterUseCase(pc, events, blobs, renderer, pub, m, l, usecase.WithChartCache(s))
}

// ProvideReport creates the report use case.
func ProvideReport(cfg *config.Config, events repository.EventStore) *usecase.ReportUseCase {
	return usecase.NewReportUseCase(events, cfg.Glucose, cfg.Location())
}

// ProvideQueue creates the render queue with its jobs registered. Redis backs
// it when available so replicas share one queue.
func ProvideQueue(cfg *config.Config, client *redis.Client, plotter *usecase.PlotterUseCase, l *applogger.Logger) queue.Runner {
	qc := &queue.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		RetryLimit: queueRetries,
		RetryDelay: 30 * time.Second,
	}
	var q queue.Runner
	if client != nil {
		q = queue.NewRedisQueue(l, qc, client, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	} else {
		q = queue.NewLocalQueue(l, qc)
	}
	q.RegisterJob(usecase.NewRenderDailyJob(plotter))
	q.RegisterJob(usecase.NewRenderWeeklyJob(plotter))
	return q
}

// ProvideScheduler registers the periodic renders. It returns nil when the
// scheduler is disabled.
func ProvideScheduler(cfg *config.Config, q queue.Runner, s cache.Store, l *applogger.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	sch := scheduler.NewScheduler(context.Background(), q, s, cfg.Location(), cfg.Scheduler.LockTTL, l)
	if err := sch.RegisterAll(cfg.Scheduler.Daily, cfg.Scheduler.Weekly); err != nil {
		return nil, err
	}
	return sch, nil
}

// ProvideLimiter creates the per-client limiter for render endpoints.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

// ProvideLiveHub creates the websocket hub; new clients get the latest
// readings first.
func ProvideLiveHub(report *usecase.ReportUseCase, l *applogger.Logger) *api.LiveHub {
	return api.NewLiveHub(l, report.Latest, liveBacklog)
}

// ProvideLivePipeline throttles consumed readings onto the hub.
func ProvideLivePipeline(hub *api.LiveHub, m repository.Metrics) *mid.LivePipeline {
	return mid.NewLivePipeline(hub, m,
		mid.WithMinInterval(time.Second),
		mid.WithBufferSize(64),
	)
}

// ProvideEventsHandler creates the handler for the events topic.
func ProvideEventsHandler(
	cfg *config.Config,
	store repository.EventStore,
	m repository.Metrics,
	live *mid.LivePipeline,
	l *applogger.Logger,
) *usecase.EventsHandler {
	return usecase.NewEventsHandler(cfg.Kafka.EventsTopic, store, m, live, l)
}

// ProvideHealthChecks probes the store and, when enabled, Redis.
func ProvideHealthChecks(store repository.EventStore, client *redis.Client) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"store": store.Health,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}

// ProvideHTTPServer registers every Echo handler.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	plotter *usecase.PlotterUseCase,
	report *usecase.ReportUseCase,
	limiter *ratelimit.Limiter,
	q queue.Runner,
	hub *api.LiveHub,
	checks map[string]api.HealthCheck,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handlers := []xhttp.Handler{
		api.NewPlotsEchoHandler(l, plotter, report, limiter, q),
		api.NewHealthEchoHandler(l, checks),
		hub,
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
	)
}

// ProvideApp creates the application server.
func ProvideApp(c server.Components) *server.App {
	return server.New(c)
}
