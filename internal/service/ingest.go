package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"

	"github.com/veloxcart/catalogd/internal/domain"
	"github.com/veloxcart/catalogd/internal/event"
	"github.com/veloxcart/catalogd/internal/fetcher"
	"github.com/veloxcart/catalogd/internal/repository"
)

var (
	ingestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_ingest_runs_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"outcome"},
	)

	ingestRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_ingest_records_total",
			Help: "Total number of processed source records by disposition",
		},
		[]string{"disposition"},
	)

	ingestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_ingest_duration_seconds",
			Help:    "Duration of ingestion runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordSource yields validated external catalog records. fetcher.Fetcher is
// the production implementation.
type RecordSource interface {
	FetchAll(ctx context.Context) ([]fetcher.SourceRecord, *fetcher.Stats, error)
}

// RunOptions tunes a single ingestion run. It lives in domain so that
// packages consumed by this one can name it without importing service.
type RunOptions = domain.RunOptions

// IngestService orchestrates one pipeline pass: fetch, validate, persist,
// index. Runs are single-flight: a second run while one is active is
// rejected with a conflict.
type IngestService struct {
	source   RecordSource
	repo     repository.ProductRepository
	indexer  *IndexerService
	producer *event.Producer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewIngestService creates a new ingestion orchestrator.
func NewIngestService(
	source RecordSource,
	repo repository.ProductRepository,
	indexer *IndexerService,
	producer *event.Producer,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		source:   source,
		repo:     repo,
		indexer:  indexer,
		producer: producer,
		logger:   logger,
	}
}

// Run executes one full ingestion pass and returns its accounting. A record
// that fails validation or persistence is counted and skipped, never fatal;
// only an unreachable source aborts the run.
func (s *IngestService) Run(ctx context.Context, opts RunOptions) (*domain.IngestSummary, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	runID := uuid.New().String()
	start := time.Now()
	summary := &domain.IngestSummary{StartedAt: start.UTC()}

	logger := s.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "ingestion run started",
		slog.Bool("index_from_source", opts.IndexFromSource),
	)

	records, stats, err := s.source.FetchAll(ctx)
	if err != nil {
		ingestRunsTotal.WithLabelValues("fetch_failed").Inc()
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	summary.Fetched = len(records) + stats.SkippedDecode
	summary.Invalid = stats.SkippedDecode

	if len(records) == 0 {
		logger.InfoContext(ctx, "source returned no records, nothing to ingest")
		ingestRunsTotal.WithLabelValues("empty").Inc()
		s.complete(ctx, logger, runID, summary, start)
		return summary, nil
	}

	products := s.validate(ctx, logger, records, summary)
	if len(products) == 0 {
		logger.WarnContext(ctx, "no records survived validation")
		ingestRunsTotal.WithLabelValues("empty").Inc()
		s.complete(ctx, logger, runID, summary, start)
		return summary, nil
	}

	persisted := s.persist(ctx, logger, products, summary)

	toIndex := persisted
	if opts.IndexFromSource {
		toIndex = products
	}
	s.index(ctx, logger, toIndex, opts.IndexFromSource, summary)

	ingestRunsTotal.WithLabelValues("completed").Inc()
	s.complete(ctx, logger, runID, summary, start)

	return summary, nil
}

// Reindex rebuilds the whole index from the store, skipping fetch and
// persist. It shares the single-flight guard with Run.
func (s *IngestService) Reindex(ctx context.Context) (*domain.BulkResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	runID := uuid.New().String()
	logger := s.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "reindex run started")

	result, err := s.indexer.ReindexAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}

	return result, nil
}

// Running reports whether a run is currently in flight.
func (s *IngestService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *IngestService) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return apperrors.Conflict("an ingestion or reindex run is already in progress")
	}
	s.running = true
	return nil
}

func (s *IngestService) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// validate converts source records into products with assigned identity,
// counting and skipping the ones that fail.
func (s *IngestService) validate(ctx context.Context, logger *slog.Logger, records []fetcher.SourceRecord, summary *domain.IngestSummary) []domain.Product {
	products := make([]domain.Product, 0, len(records))

	for i := range records {
		rec := &records[i]

		if err := rec.Validate(); err != nil {
			summary.Invalid++
			ingestRecordsTotal.WithLabelValues("invalid").Inc()
			logger.WarnContext(ctx, "skipping invalid source record",
				slog.Int64("external_id", rec.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		p, err := rec.ToDomain()
		if err != nil {
			summary.Invalid++
			ingestRecordsTotal.WithLabelValues("invalid").Inc()
			logger.WarnContext(ctx, "skipping unconvertible source record",
				slog.Int64("external_id", rec.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		now := time.Now().UTC()
		p.ID = uuid.New().String()
		p.CreatedAt = now
		p.UpdatedAt = now
		products = append(products, *p)
	}

	return products
}

// persist writes each product in its own transaction, one at a time so that
// get-or-create races on shared categories, brands, and tags cannot
// interleave. Duplicates and failed records are counted and skipped.
func (s *IngestService) persist(ctx context.Context, logger *slog.Logger, products []domain.Product, summary *domain.IngestSummary) []domain.Product {
	persisted := make([]domain.Product, 0, len(products))

	for i := range products {
		p := &products[i]

		err := s.repo.Create(ctx, p)
		switch {
		case err == nil:
			summary.Created++
			ingestRecordsTotal.WithLabelValues("created").Inc()
			persisted = append(persisted, *p)
		case errors.Is(err, apperrors.ErrAlreadyExists):
			summary.Duplicates++
			ingestRecordsTotal.WithLabelValues("duplicate").Inc()
			logger.InfoContext(ctx, "skipping already persisted record",
				slog.String("sku", p.SKU),
			)
		default:
			summary.Failed++
			ingestRecordsTotal.WithLabelValues("failed").Inc()
			logger.ErrorContext(ctx, "failed to persist record",
				slog.String("sku", p.SKU),
				slog.String("error", err.Error()),
			)
		}
	}

	return persisted
}

func (s *IngestService) index(ctx context.Context, logger *slog.Logger, products []domain.Product, fromSource bool, summary *domain.IngestSummary) {
	if len(products) == 0 {
		return
	}

	var (
		result *domain.BulkResult
		err    error
	)
	if fromSource {
		result, err = s.indexer.BulkIndexRaw(ctx, products)
	} else {
		result, err = s.indexer.BulkIndex(ctx, products)
	}
	if err != nil {
		summary.IndexFailed = len(products)
		logger.ErrorContext(ctx, "bulk index failed",
			slog.String("error", err.Error()),
		)
		return
	}

	summary.Indexed = result.Indexed
	summary.IndexFailed = result.Failed
}

func (s *IngestService) complete(ctx context.Context, logger *slog.Logger, runID string, summary *domain.IngestSummary, start time.Time) {
	summary.ElapsedMs = time.Since(start).Milliseconds()
	ingestDuration.Observe(time.Since(start).Seconds())

	if err := s.producer.PublishIngestCompleted(ctx, runID, summary); err != nil {
		logger.ErrorContext(ctx, "failed to publish ingest.completed event",
			slog.String("error", err.Error()),
		)
	}

	logger.InfoContext(ctx, "ingestion run completed",
		slog.Int("fetched", summary.Fetched),
		slog.Int("invalid", summary.Invalid),
		slog.Int("created", summary.Created),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("failed", summary.Failed),
		slog.Int("indexed", summary.Indexed),
		slog.Int("index_failed", summary.IndexFailed),
		slog.Int64("elapsed_ms", summary.ElapsedMs),
	)
}
