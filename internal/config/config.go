package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/veloxcart/catalogd/pkg/config"
)

// Cache modes for the source response cache.
const (
	CacheOff   = "off"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Search engine backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Config holds all configuration for catalogd.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Catalog source
	SourceBaseURL       string  `env:"SOURCE_BASE_URL" envDefault:"https://dummyjson.com"`
	SourcePageSize      int     `env:"SOURCE_PAGE_SIZE" envDefault:"30"`
	SourceTimeoutSecs   int     `env:"SOURCE_TIMEOUT_SECONDS" envDefault:"30"`
	SourceRPS           float64 `env:"SOURCE_REQUESTS_PER_SECOND" envDefault:"5"`
	SourceCache         string  `env:"SOURCE_CACHE" envDefault:"off"`
	SourceCacheDir      string  `env:"SOURCE_CACHE_DIR" envDefault:".cache/source"`
	SourceCacheTTLMins  int     `env:"SOURCE_CACHE_TTL_MINUTES" envDefault:"60"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine       string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"catalog_products"`

	// Redis (source cache backend)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka (optional)
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalogd config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SourceBaseURL == "" {
		return fmt.Errorf("SOURCE_BASE_URL is required")
	}
	if c.SourcePageSize < 1 {
		return fmt.Errorf("SOURCE_PAGE_SIZE must be > 0, got %d", c.SourcePageSize)
	}
	if c.SourceRPS <= 0 {
		return fmt.Errorf("SOURCE_REQUESTS_PER_SECOND must be > 0, got %f", c.SourceRPS)
	}
	switch c.SourceCache {
	case CacheOff, CacheFile, CacheRedis:
	default:
		return fmt.Errorf("SOURCE_CACHE must be one of: off, file, redis, got %q", c.SourceCache)
	}
	switch c.SearchEngine {
	case EngineElasticsearch, EngineMemory:
	default:
		return fmt.Errorf("SEARCH_ENGINE must be one of: elasticsearch, memory, got %q", c.SearchEngine)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// SourceTimeout returns the source HTTP timeout as a duration.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSecs) * time.Second
}

// SourceCacheTTL returns the source cache TTL as a duration.
func (c *Config) SourceCacheTTL() time.Duration {
	return time.Duration(c.SourceCacheTTLMins) * time.Minute
}
