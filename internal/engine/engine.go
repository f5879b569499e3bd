// Package engine defines the search backend contract for catalog products.
package engine

import (
	"context"

	"github.com/veloxcart/catalogd/internal/domain"
)

// SearchEngine defines the interface for indexing and querying product
// documents. Implementations may use Elasticsearch, in-memory storage,
// or other backends.
type SearchEngine interface {
	// Index adds or updates a single product document in the search index.
	Index(ctx context.Context, doc *domain.ProductDocument) error

	// BulkIndex adds or updates multiple documents and reports per-item
	// accounting. Individual document failures are counted, not returned
	// as an error.
	BulkIndex(ctx context.Context, docs []domain.ProductDocument) (*domain.BulkResult, error)

	// Delete removes a document from the search index by product ID.
	// Deleting an absent document is not an error.
	Delete(ctx context.Context, id string) error

	// Search executes a query and returns matching document IDs in rank
	// order. Field values are hydrated from the store, never read here.
	Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchHits, error)

	// Suggest returns title completions for the given prefix.
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)

	// Ping checks whether the engine backend is reachable.
	Ping(ctx context.Context) error
}
