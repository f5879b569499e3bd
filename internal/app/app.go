// Package app wires together all dependencies and runs the catalog service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/veloxcart/catalogd/migrations"
	"github.com/veloxcart/catalogd/pkg/database"
	"github.com/veloxcart/catalogd/pkg/health"
	"github.com/veloxcart/catalogd/pkg/httpclient"
	pkgkafka "github.com/veloxcart/catalogd/pkg/kafka"
	"github.com/veloxcart/catalogd/pkg/tracing"

	"github.com/veloxcart/catalogd/internal/config"
	"github.com/veloxcart/catalogd/internal/engine"
	esengine "github.com/veloxcart/catalogd/internal/engine/elasticsearch"
	"github.com/veloxcart/catalogd/internal/engine/memory"
	"github.com/veloxcart/catalogd/internal/event"
	"github.com/veloxcart/catalogd/internal/fetcher"
	handler "github.com/veloxcart/catalogd/internal/handler/http"
	"github.com/veloxcart/catalogd/internal/repository/postgres"
	"github.com/veloxcart/catalogd/internal/service"
)

// App holds the wired dependency graph and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "catalogd",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "catalogd")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize the search engine based on configuration.
	var eng engine.SearchEngine
	var esEng *esengine.Engine
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		esEng, err = esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		eng = esEng
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	default:
		eng = memory.New()
		logger.Info("in-memory search engine initialized")
	}

	// Build the catalog source fetcher. The source client retries transient
	// failures and trips a circuit breaker when the source misbehaves.
	sourceClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.SourceTimeout(),
		MaxRetries:      3,
		RetryWaitMin:    time.Second,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 10,
	})
	cbClient := httpclient.NewCircuitBreakerClient(sourceClient, httpclient.DefaultCircuitBreakerConfig("catalog-source"), logger)

	sourceFetcher := fetcher.New(cbClient, fetcher.Config{
		BaseURL:           cfg.SourceBaseURL,
		PageSize:          cfg.SourcePageSize,
		RequestsPerSecond: cfg.SourceRPS,
	}, logger)

	var redisClient *redis.Client
	switch cfg.SourceCache {
	case config.CacheFile:
		fileCache, err := fetcher.NewFileCache(cfg.SourceCacheDir, cfg.SourceCacheTTL(), logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init file cache: %w", err)
		}
		sourceFetcher = sourceFetcher.WithCache(fileCache)
		logger.Info("source response cache enabled",
			slog.String("backend", "file"),
			slog.String("dir", cfg.SourceCacheDir),
		)
	case config.CacheRedis:
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		sourceFetcher = sourceFetcher.WithCache(fetcher.NewRedisCache(redisClient, cfg.SourceCacheTTL(), logger))
		logger.Info("source response cache enabled",
			slog.String("backend", "redis"),
			slog.String("host", cfg.RedisHost),
		)
	}

	// Initialize the Kafka producer when a broker is configured. Without one
	// the event producer is a no-op and the service runs standalone.
	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		producer = pkgkafka.NewProducer(kafkaCfg, logger)
		if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
	}

	// Build the dependency graph.
	repo := postgres.NewProductRepository(pool)
	categories := postgres.NewCategoryRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	indexer := service.NewIndexerService(eng, repo, logger)
	catalogService := service.NewCatalogService(repo, categories, indexer, eventProducer, logger)
	searchService := service.NewSearchService(eng, repo, logger)
	ingestService := service.NewIngestService(sourceFetcher, repo, indexer, eventProducer, logger)

	// Set up Kafka consumers for ingestion control events.
	var consumers []*pkgkafka.Consumer
	if cfg.KafkaEnabled {
		consumerHandler := event.NewConsumerHandler(ingestService, logger)
		idempotencyStore := pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)

		for _, topic := range []string{event.TopicIngestRequested, event.TopicReindexRequested} {
			c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
				Brokers:   cfg.KafkaBrokers,
				GroupID:   event.ConsumerGroupID,
				Topic:     topic,
				MinBytes:  1,
				MaxBytes:  10e6,
				EnableDLQ: true,
			}, pkgkafka.IdempotentHandler(idempotencyStore, consumerHandler.Handle, logger), logger)
			consumers = append(consumers, c)
		}
		logger.Info("kafka consumers initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("topic_count", len(consumers)),
		)
	}

	// Health checks. Postgres is the system of record, so it gates readiness;
	// the engine and broker only degrade the service.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if esEng != nil {
		healthHandler.RegisterNonCritical("elasticsearch", esEng.Ping)
	}
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	router := handler.NewRouter(catalogService, searchService, ingestService, healthHandler, logger, cfg.PprofAllowedCIDRs)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		consumers:      consumers,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	// Start Kafka consumers.
	for _, c := range a.consumers {
		c := c
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumers
// 4. Kafka producer
// 5. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka consumers.
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close the Redis client and PostgreSQL pool.
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := producer.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
