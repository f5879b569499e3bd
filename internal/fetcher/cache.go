package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "source_cache:"

// ResponseCache stores raw source page bodies keyed by request URL digest.
// The cache is advisory: lookup and store failures degrade to a live
// fetch and are never surfaced to the caller.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

// cacheKey derives a stable filesystem- and redis-safe key from a URL.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// FileCache stores source responses as files under a directory. Entries
// expire based on file modification time.
type FileCache struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewFileCache creates the cache directory if needed and returns a
// file-backed response cache.
func NewFileCache(dir string, ttl time.Duration, logger *slog.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: ttl, logger: logger}, nil
}

// Get returns the cached body for key if present and not expired.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool) {
	path := filepath.Join(c.dir, key+".json")

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}

	body, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("failed to read cached source page",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return body, true
}

// Set writes the body to a temp file and renames it into place so
// concurrent readers never observe a partial entry.
func (c *FileCache) Set(_ context.Context, key string, body []byte) {
	path := filepath.Join(c.dir, key+".json")

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		c.logger.Warn("failed to create cache temp file", slog.String("error", err.Error()))
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		c.logger.Warn("failed to write cache temp file", slog.String("error", err.Error()))
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		c.logger.Warn("failed to close cache temp file", slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		c.logger.Warn("failed to publish cache entry", slog.String("error", err.Error()))
	}
}

// RedisCache stores source responses in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache returns a Redis-backed response cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached body for key if present.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis cache lookup failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	return body, true
}

// Set stores the body under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, body []byte) {
	if err := c.client.Set(ctx, cacheKeyPrefix+key, body, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
