// Package repository defines the persistence contracts for the catalog.
package repository

import (
	"context"

	"github.com/veloxcart/catalogd/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	// Category filters by category slug when set.
	Category *string
	Page     int
	PerPage  int
}

// ProductRepository defines the interface for product persistence
// operations. All reads eagerly load images, reviews, and tags so
// callers never trip over missing sub-entities at serialization time.
type ProductRepository interface {
	// Create inserts a product and its images, reviews, and tag links in
	// one transaction. Referenced category, brand, and tag rows are
	// resolved or created by normalized slug inside the same transaction.
	// A product whose SKU or external ID is already persisted is rejected
	// with an already-exists error and nothing is written.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByIDs retrieves multiple products in one round trip. Missing IDs
	// are silently absent from the result; order is unspecified.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)

	// List returns products matching the given filter along with the
	// total count, newest first.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Delete removes a product by its identifier. Child rows cascade.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines read access to the categories referenced by
// persisted products.
type CategoryRepository interface {
	// List returns the categories currently referenced by at least one
	// product, with product counts, sorted by name.
	List(ctx context.Context) ([]domain.Category, error)
}
