// Package postgres implements the catalog repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veloxcart/catalogd/pkg/database"
	apperrors "github.com/veloxcart/catalogd/pkg/errors"
	"github.com/veloxcart/catalogd/pkg/slug"

	"github.com/veloxcart/catalogd/internal/domain"
	"github.com/veloxcart/catalogd/internal/repository"
)

// productColumns is the shared select list for hydrating a product row
// with its category and brand names resolved.
const productColumns = `
	p.id, p.external_id, p.sku, p.title, p.description,
	c.name AS category, c.slug AS category_slug, COALESCE(b.name, '') AS brand,
	p.price, p.discount_percentage, p.rating, p.stock,
	p.weight, p.width, p.height, p.depth,
	p.warranty_information, p.shipping_information, p.availability_status, p.return_policy,
	p.minimum_order_quantity, p.barcode, p.qr_code, p.created_at, p.updated_at`

const productJoins = `
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN brands b ON b.id = p.brand_id`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a product and its children atomically within a transaction.
// The product's category, brand, and tags are resolved or created by slug
// inside the same transaction; a duplicate SKU or external ID rejects the
// whole record with an already-exists error.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateProduct", "INSERT INTO products")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Identity check on both dedup keys.
	var existingSKU string
	err = tx.QueryRow(ctx,
		`SELECT sku FROM products WHERE sku = $1 OR external_id = $2 LIMIT 1`,
		p.SKU, p.ExternalID,
	).Scan(&existingSKU)
	switch {
	case err == nil:
		if existingSKU == p.SKU {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return apperrors.AlreadyExists("product", "external_id", strconv.FormatInt(p.ExternalID, 10))
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("check product identity: %w", err)
	}

	categoryID, categorySlug, err := upsertCategory(ctx, tx, p.Category)
	if err != nil {
		return err
	}
	p.CategorySlug = categorySlug

	var brandID *string
	if p.Brand != "" {
		id, err := upsertBrand(ctx, tx, p.Brand)
		if err != nil {
			return err
		}
		brandID = &id
	}

	insertProduct := `
		INSERT INTO products (
			id, external_id, sku, title, description, category_id, brand_id,
			price, discount_percentage, rating, stock,
			weight, width, height, depth,
			warranty_information, shipping_information, availability_status, return_policy,
			minimum_order_quantity, barcode, qr_code, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = tx.Exec(ctx, insertProduct,
		p.ID,
		p.ExternalID,
		p.SKU,
		p.Title,
		p.Description,
		categoryID,
		brandID,
		p.Price,
		p.DiscountPercentage,
		p.Rating,
		p.Stock,
		p.Weight,
		p.Width,
		p.Height,
		p.Depth,
		p.WarrantyInformation,
		p.ShippingInformation,
		p.AvailabilityStatus,
		p.ReturnPolicy,
		p.MinimumOrderQuantity,
		p.Barcode,
		p.QRCode,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		// A concurrent insert can win the identity race after the check.
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	imageQuery := `
		INSERT INTO product_images (id, product_id, url, is_thumbnail, position)
		VALUES ($1, $2, $3, $4, $5)`

	for i, img := range p.Images {
		if _, err := tx.Exec(ctx, imageQuery,
			uuid.New().String(), p.ID, img.URL, img.IsThumbnail, i,
		); err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}

	reviewQuery := `
		INSERT INTO product_reviews (id, product_id, rating, comment, reviewer_name, reviewer_email, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, rev := range p.Reviews {
		if _, err := tx.Exec(ctx, reviewQuery,
			uuid.New().String(), p.ID, rev.Rating, rev.Comment, rev.ReviewerName, rev.ReviewerEmail, rev.ReviewedAt,
		); err != nil {
			return fmt.Errorf("insert product review: %w", err)
		}
	}

	for _, tag := range p.Tags {
		tagID, err := upsertTag(ctx, tx, tag)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO product_tags (product_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, tagID,
		); err != nil {
			return fmt.Errorf("link product tag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// upsertCategory resolves or creates a category by its normalized slug.
// A concurrent duplicate-name insert degrades to using the existing row.
func upsertCategory(ctx context.Context, tx pgx.Tx, name string) (string, string, error) {
	s := slug.Generate(name)

	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO categories (id, name, slug, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		uuid.New().String(), name, s, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", "", fmt.Errorf("upsert category: %w", err)
	}
	return id, s, nil
}

// upsertBrand resolves or creates a brand by its normalized slug.
func upsertBrand(ctx context.Context, tx pgx.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO brands (id, name, slug, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		uuid.New().String(), name, slug.Generate(name), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert brand: %w", err)
	}
	return id, nil
}

// upsertTag resolves or creates a tag by its normalized slug.
func upsertTag(ctx context.Context, tx pgx.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO tags (id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		uuid.New().String(), name, slug.Generate(name),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert tag: %w", err)
	}
	return id, nil
}

// GetByID retrieves a product by its ID, eagerly loading its children.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p *domain.Product, err error) {
	query := `SELECT ` + productColumns + productJoins + `
	WHERE p.id = $1`

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	p, err = r.scanProduct(ctx, query, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, err
	}

	products, err := r.loadChildren(ctx, []domain.Product{*p})
	if err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs retrieves multiple products in one round trip, eagerly loading
// children. IDs with no persisted product are absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (products []domain.Product, err error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := `SELECT ` + productColumns + productJoins + `
	WHERE p.id = ANY($1)`

	ctx, end := database.TraceQuery(ctx, "GetProductsByIDs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := scanProductFields(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return r.loadChildren(ctx, products)
}

// List returns products matching the given filter with the total count,
// newest first, eagerly loading children for the returned page.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (products []domain.Product, totalCount int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("c.slug = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`SELECT %s,
		   count(*) OVER() AS total_count
	%s
	%s
	ORDER BY p.created_at DESC
	LIMIT $%d OFFSET $%d`,
		productColumns, productJoins, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0)

	for rows.Next() {
		var p domain.Product
		if err := scanProductFields(rows, &p, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	products, err = r.loadChildren(ctx, products)
	if err != nil {
		return nil, 0, err
	}

	return products, totalCount, nil
}

// Delete removes a product from the database by its ID. Images, reviews,
// and tag links cascade.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteProduct", `DELETE FROM products WHERE id = $1`)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// scanProduct executes a query expected to return a single product row.
func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var p domain.Product
	err := scanProductFields(r.pool.QueryRow(ctx, query, args...), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProductFields scans one product row in productColumns order, plus
// any extra trailing columns (e.g. a window total count).
func scanProductFields(row rowScanner, p *domain.Product, extra ...any) error {
	dest := []any{
		&p.ID,
		&p.ExternalID,
		&p.SKU,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.CategorySlug,
		&p.Brand,
		&p.Price,
		&p.DiscountPercentage,
		&p.Rating,
		&p.Stock,
		&p.Weight,
		&p.Width,
		&p.Height,
		&p.Depth,
		&p.WarrantyInformation,
		&p.ShippingInformation,
		&p.AvailabilityStatus,
		&p.ReturnPolicy,
		&p.MinimumOrderQuantity,
		&p.Barcode,
		&p.QRCode,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// loadChildren batch-loads images, reviews, and tags for all given
// products in three queries to avoid N+1.
func (r *ProductRepository) loadChildren(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	if len(products) == 0 {
		return products, nil
	}

	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
		products[i].Images = []domain.ProductImage{}
		products[i].Reviews = []domain.ProductReview{}
		products[i].Tags = []string{}
	}

	imageRows, err := r.pool.Query(ctx, `
		SELECT product_id, url, is_thumbnail
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("batch load product images: %w", err)
	}
	defer imageRows.Close()

	for imageRows.Next() {
		var (
			productID string
			img       domain.ProductImage
		)
		if err := imageRows.Scan(&productID, &img.URL, &img.IsThumbnail); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		i := index[productID]
		products[i].Images = append(products[i].Images, img)
	}
	if err := imageRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product image rows: %w", err)
	}

	reviewRows, err := r.pool.Query(ctx, `
		SELECT product_id, rating, comment, reviewer_name, reviewer_email, reviewed_at
		FROM product_reviews
		WHERE product_id = ANY($1)
		ORDER BY product_id, reviewed_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("batch load product reviews: %w", err)
	}
	defer reviewRows.Close()

	for reviewRows.Next() {
		var (
			productID string
			rev       domain.ProductReview
		)
		if err := reviewRows.Scan(&productID, &rev.Rating, &rev.Comment, &rev.ReviewerName, &rev.ReviewerEmail, &rev.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan product review: %w", err)
		}
		i := index[productID]
		products[i].Reviews = append(products[i].Reviews, rev)
	}
	if err := reviewRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product review rows: %w", err)
	}

	tagRows, err := r.pool.Query(ctx, `
		SELECT pt.product_id, t.name
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = ANY($1)
		ORDER BY pt.product_id, t.name`, ids)
	if err != nil {
		return nil, fmt.Errorf("batch load product tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var (
			productID string
			tag       string
		)
		if err := tagRows.Scan(&productID, &tag); err != nil {
			return nil, fmt.Errorf("scan product tag: %w", err)
		}
		i := index[productID]
		products[i].Tags = append(products[i].Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product tag rows: %w", err)
	}

	return products, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
