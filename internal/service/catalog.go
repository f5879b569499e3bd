// Package service implements the business logic of the catalog pipeline.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veloxcart/catalogd/internal/domain"
	"github.com/veloxcart/catalogd/internal/event"
	"github.com/veloxcart/catalogd/internal/repository"
)

// CatalogService serves direct reads against the system of record and owns
// product deletion, which spans both the store and the search index.
type CatalogService struct {
	repo       repository.ProductRepository
	categories repository.CategoryRepository
	indexer    *IndexerService
	producer   *event.Producer
	logger     *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	repo repository.ProductRepository,
	categories repository.CategoryRepository,
	indexer *IndexerService,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		repo:       repo,
		categories: categories,
		indexer:    indexer,
		producer:   producer,
		logger:     logger,
	}
}

// GetProduct retrieves a product by its ID, with images, reviews, and tags.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered, paginated product list, newest first.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// DeleteProduct removes a product from the store and its document from the
// search index. The store is the source of truth: an index removal failure
// is logged and left for the next reindex to heal.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.indexer.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove product from index",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}

// ListCategories returns the categories referenced by persisted products.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
