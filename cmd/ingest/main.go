// Command ingest runs a single ingestion or reindex pass and exits. It is
// meant for cron jobs and operator use; the long-running server exposes the
// same operations over HTTP and Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veloxcart/catalogd/migrations"
	"github.com/veloxcart/catalogd/pkg/database"
	"github.com/veloxcart/catalogd/pkg/httpclient"
	"github.com/veloxcart/catalogd/pkg/logger"

	"github.com/veloxcart/catalogd/internal/config"
	"github.com/veloxcart/catalogd/internal/engine"
	esengine "github.com/veloxcart/catalogd/internal/engine/elasticsearch"
	"github.com/veloxcart/catalogd/internal/engine/memory"
	"github.com/veloxcart/catalogd/internal/event"
	"github.com/veloxcart/catalogd/internal/fetcher"
	"github.com/veloxcart/catalogd/internal/repository/postgres"
	"github.com/veloxcart/catalogd/internal/service"
)

func main() {
	var (
		reindex    bool
		fromSource bool
		cacheMode  string
	)
	flag.BoolVar(&reindex, "reindex", false, "rebuild the search index from the database instead of fetching the source")
	flag.BoolVar(&fromSource, "from-source", false, "index documents from the fetched records instead of the persisted rows")
	flag.StringVar(&cacheMode, "cache", "", "override the source cache backend: off, file, or redis")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cacheMode != "" {
		switch cacheMode {
		case config.CacheOff, config.CacheFile, config.CacheRedis:
			cfg.SourceCache = cacheMode
		default:
			slog.Error("invalid -cache value, must be off, file, or redis",
				slog.String("cache", cacheMode),
			)
			os.Exit(1)
		}
	}

	log := logger.New("catalogd-ingest", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log, reindex, fromSource); err != nil {
		log.Error("run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run wires the minimal pipeline graph and executes one pass. No HTTP
// server, tracer, or Kafka consumers are started.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, reindex, fromSource bool) error {
	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	defer initCancel()

	pool, err := database.NewPostgresPool(initCtx, &database.PostgresConfig{
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
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(initCtx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var eng engine.SearchEngine
	if cfg.SearchEngine == config.EngineElasticsearch {
		eng, err = esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, log)
		if err != nil {
			return fmt.Errorf("init elasticsearch engine: %w", err)
		}
	} else {
		eng = memory.New()
	}

	sourceClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.SourceTimeout(),
		MaxRetries:      3,
		RetryWaitMin:    time.Second,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 10,
	})
	cbClient := httpclient.NewCircuitBreakerClient(sourceClient, httpclient.DefaultCircuitBreakerConfig("catalog-source"), log)

	sourceFetcher := fetcher.New(cbClient, fetcher.Config{
		BaseURL:           cfg.SourceBaseURL,
		PageSize:          cfg.SourcePageSize,
		RequestsPerSecond: cfg.SourceRPS,
	}, log)

	switch cfg.SourceCache {
	case config.CacheFile:
		fileCache, err := fetcher.NewFileCache(cfg.SourceCacheDir, cfg.SourceCacheTTL(), log)
		if err != nil {
			return fmt.Errorf("init file cache: %w", err)
		}
		sourceFetcher = sourceFetcher.WithCache(fileCache)
	case config.CacheRedis:
		redisClient, err := database.NewRedisClient(initCtx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		sourceFetcher = sourceFetcher.WithCache(fetcher.NewRedisCache(redisClient, cfg.SourceCacheTTL(), log))
	}

	repo := postgres.NewProductRepository(pool)
	indexer := service.NewIndexerService(eng, repo, log)
	ingestService := service.NewIngestService(sourceFetcher, repo, indexer, event.NewProducer(nil, log), log)

	if reindex {
		result, err := ingestService.Reindex(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("reindex complete: %d indexed, %d failed\n", result.Indexed, result.Failed)
		return nil
	}

	summary, err := ingestService.Run(ctx, service.RunOptions{IndexFromSource: fromSource})
	if err != nil {
		return err
	}

	fmt.Printf("ingestion complete in %dms\n", summary.ElapsedMs)
	fmt.Printf("  fetched:      %d\n", summary.Fetched)
	fmt.Printf("  invalid:      %d\n", summary.Invalid)
	fmt.Printf("  created:      %d\n", summary.Created)
	fmt.Printf("  duplicates:   %d\n", summary.Duplicates)
	fmt.Printf("  failed:       %d\n", summary.Failed)
	fmt.Printf("  indexed:      %d\n", summary.Indexed)
	fmt.Printf("  index failed: %d\n", summary.IndexFailed)
	return nil
}
