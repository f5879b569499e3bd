// Package fetcher pulls paginated product records from an upstream
// catalog source over HTTP.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/veloxcart/catalogd/pkg/httpclient"
)

// maxPageBody caps how much of a source page response is read.
const maxPageBody = 10 << 20 // 10 MB

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds fetcher tuning parameters.
type Config struct {
	// BaseURL is the source root, e.g. https://dummyjson.com.
	BaseURL string
	// PageSize is the number of records requested per page.
	PageSize int
	// RequestsPerSecond throttles live requests to the source.
	// Cache hits are not throttled.
	RequestsPerSecond float64
}

// Stats summarizes one full catalog fetch.
type Stats struct {
	Pages         int `json:"pages"`
	Records       int `json:"records"`
	SkippedDecode int `json:"skipped_decode"`
	CacheHits     int `json:"cache_hits"`
}

// Fetcher retrieves the full product catalog from the source, page by
// page, honoring a rate limit and an optional response cache.
type Fetcher struct {
	client   HTTPDoer
	baseURL  string
	pageSize int
	limiter  *rate.Limiter
	cache    ResponseCache
	logger   *slog.Logger
}

// New creates a fetcher against the configured source.
func New(client HTTPDoer, cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:   client,
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:   logger,
	}
}

// WithCache attaches a response cache. Pages served from the cache do
// not count against the rate limit.
func (f *Fetcher) WithCache(cache ResponseCache) *Fetcher {
	f.cache = cache
	return f
}

// sourcePage is the envelope the source wraps every product page in.
// Records are kept raw so one malformed product does not sink the page.
type sourcePage struct {
	Products []json.RawMessage `json:"products"`
	Total    int               `json:"total"`
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
}

// FetchAll retrieves every product the source reports. The first page
// doubles as a probe for the total count; paging stops once the total
// is covered or the source returns a short page.
func (f *Fetcher) FetchAll(ctx context.Context) ([]SourceRecord, *Stats, error) {
	stats := &Stats{}
	var records []SourceRecord

	skip := 0
	total := -1

	for {
		page, err := f.fetchPage(ctx, f.pageSize, skip, stats)
		if err != nil {
			return nil, stats, fmt.Errorf("fetch page at skip=%d: %w", skip, err)
		}
		stats.Pages++

		if total < 0 {
			total = page.Total
			f.logger.InfoContext(ctx, "source catalog probed",
				slog.Int("total", total),
				slog.Int("page_size", f.pageSize),
			)
		}

		for _, raw := range page.Products {
			var rec SourceRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				stats.SkippedDecode++
				f.logger.WarnContext(ctx, "skipping undecodable source record",
					slog.Int("skip", skip),
					slog.String("error", err.Error()),
				)
				continue
			}
			records = append(records, rec)
		}
		stats.Records = len(records)

		if len(page.Products) == 0 || len(page.Products) < f.pageSize {
			break
		}
		skip += len(page.Products)
		if total >= 0 && skip >= total {
			break
		}
	}

	f.logger.InfoContext(ctx, "source catalog fetched",
		slog.Int("pages", stats.Pages),
		slog.Int("records", stats.Records),
		slog.Int("skipped_decode", stats.SkippedDecode),
		slog.Int("cache_hits", stats.CacheHits),
	)

	return records, stats, nil
}

// fetchPage retrieves one page, from the cache when possible.
func (f *Fetcher) fetchPage(ctx context.Context, limit, skip int, stats *Stats) (*sourcePage, error) {
	url := fmt.Sprintf("%s/products?limit=%d&skip=%d", f.baseURL, limit, skip)
	key := cacheKey(url)

	if f.cache != nil {
		if body, ok := f.cache.Get(ctx, key); ok {
			stats.CacheHits++
			return decodePage(body)
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create source request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call catalog source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog source")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, fmt.Errorf("read source response: %w", err)
	}

	if f.cache != nil {
		f.cache.Set(ctx, key, body)
	}

	return decodePage(body)
}

func decodePage(body []byte) (*sourcePage, error) {
	var page sourcePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode source page: %w", err)
	}
	return &page, nil
}
