package service

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"

	"github.com/veloxcart/catalogd/internal/domain"
	"github.com/veloxcart/catalogd/internal/engine"
	"github.com/veloxcart/catalogd/internal/repository"
)

// indexChunkSize caps how many documents go to the engine in one bulk call.
const indexChunkSize = 100

// IndexerService flattens products into index documents and writes them to
// the search engine in bulk, with per-document failure accounting.
type IndexerService struct {
	engine engine.SearchEngine
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewIndexerService creates a new indexer service.
func NewIndexerService(eng engine.SearchEngine, repo repository.ProductRepository, logger *slog.Logger) *IndexerService {
	return &IndexerService{
		engine: eng,
		repo:   repo,
		logger: logger,
	}
}

// toDocument flattens a product into its denormalized index projection.
func toDocument(p *domain.Product) domain.ProductDocument {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.ProductDocument{
		ID:                 p.ID,
		ExternalID:         p.ExternalID,
		Title:              p.Title,
		Description:        p.Description,
		Category:           p.Category,
		Brand:              p.Brand,
		SKU:                p.SKU,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		Rating:             p.Rating,
		Stock:              p.Stock,
		Tags:               tags,
		Thumbnail:          p.Thumbnail(),
		AvailabilityStatus: p.AvailabilityStatus,
		CreatedAt:          p.CreatedAt,
	}
}

// BulkIndex indexes the given products in fixed-size chunks. A rejected
// document or a failed chunk is counted and logged, never fatal: the result
// reports how many documents the engine accepted.
func (s *IndexerService) BulkIndex(ctx context.Context, products []domain.Product) (*domain.BulkResult, error) {
	total := &domain.BulkResult{}
	if len(products) == 0 {
		return total, nil
	}

	docs := make([]domain.ProductDocument, len(products))
	for i := range products {
		docs[i] = toDocument(&products[i])
	}

	for start := 0; start < len(docs); start += indexChunkSize {
		end := start + indexChunkSize
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[start:end]

		res, err := s.engine.BulkIndex(ctx, chunk)
		if err != nil {
			total.Failed += len(chunk)
			s.logger.ErrorContext(ctx, "bulk index chunk failed",
				slog.Int("size", len(chunk)),
				slog.String("error", err.Error()),
			)
			continue
		}

		total.Indexed += res.Indexed
		total.Failed += res.Failed
	}

	s.logger.InfoContext(ctx, "bulk index completed",
		slog.Int("indexed", total.Indexed),
		slog.Int("failed", total.Failed),
	)

	return total, nil
}

// BulkIndexRaw indexes documents built straight from fetched records, before
// or instead of persistence. Identifiers that never reach the store are
// dropped at hydration time and healed by the next reindex.
func (s *IndexerService) BulkIndexRaw(ctx context.Context, products []domain.Product) (*domain.BulkResult, error) {
	return s.BulkIndex(ctx, products)
}

// Delete removes a product's document from the index. Deleting an absent
// document is not an error.
func (s *IndexerService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("product id is required")
	}

	if err := s.engine.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete from index: %w", err)
	}

	s.logger.InfoContext(ctx, "product removed from index",
		slog.String("product_id", id),
	)

	return nil
}

// ReindexAll rebuilds the index from the entire store, page by page. This is
// the disaster-recovery path: the index stays rebuildable from the system of
// record at any time.
func (s *IndexerService) ReindexAll(ctx context.Context) (*domain.BulkResult, error) {
	total := &domain.BulkResult{}

	for page := 1; ; page++ {
		products, totalCount, err := s.repo.List(ctx, repository.ProductFilter{Page: page, PerPage: indexChunkSize})
		if err != nil {
			return nil, fmt.Errorf("read products for reindex: %w", err)
		}
		if len(products) == 0 {
			break
		}

		res, err := s.BulkIndex(ctx, products)
		if err != nil {
			return nil, err
		}
		total.Indexed += res.Indexed
		total.Failed += res.Failed

		if page*indexChunkSize >= totalCount {
			break
		}
	}

	s.logger.InfoContext(ctx, "reindex completed",
		slog.Int("indexed", total.Indexed),
		slog.Int("failed", total.Failed),
	)

	return total, nil
}
