package postgres

import (
	"context"
	"fmt"

	"github.com/veloxcart/catalogd/pkg/database"

	"github.com/veloxcart/catalogd/internal/domain"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns every category referenced by at least one persisted product,
// with its product count, sorted by name. Categories whose products were all
// deleted drop out of the listing.
func (r *CategoryRepository) List(ctx context.Context) (categories []domain.Category, err error) {
	query := `
		SELECT c.id, c.name, c.slug, count(p.id) AS product_count
		FROM categories c
		JOIN products p ON p.category_id = c.id
		GROUP BY c.id, c.name, c.slug
		ORDER BY c.name`

	ctx, end := database.TraceQuery(ctx, "ListCategories", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories = make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ProductCount); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}
