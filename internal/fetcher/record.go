package fetcher

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"
	"github.com/veloxcart/catalogd/pkg/validator"

	"github.com/veloxcart/catalogd/internal/domain"
)

// SourceRecord is one product as the upstream catalog source serves it.
// Field names follow the source's camelCase JSON convention.
type SourceRecord struct {
	ID                   int64            `json:"id" validate:"required,gt=0"`
	Title                string           `json:"title" validate:"required"`
	Description          string           `json:"description"`
	Category             string           `json:"category" validate:"required"`
	Price                float64          `json:"price" validate:"gte=0,lte=999999.99"`
	DiscountPercentage   float64          `json:"discountPercentage" validate:"gte=0,lte=100"`
	Rating               float64          `json:"rating" validate:"gte=0,lte=5"`
	Stock                int              `json:"stock" validate:"gte=0"`
	Tags                 []string         `json:"tags"`
	Brand                string           `json:"brand"`
	SKU                  string           `json:"sku" validate:"required"`
	Weight               float64          `json:"weight" validate:"gte=0"`
	Dimensions           SourceDimensions `json:"dimensions"`
	WarrantyInformation  string           `json:"warrantyInformation"`
	ShippingInformation  string           `json:"shippingInformation"`
	AvailabilityStatus   string           `json:"availabilityStatus"`
	Reviews              []SourceReview   `json:"reviews" validate:"dive"`
	ReturnPolicy         string           `json:"returnPolicy"`
	MinimumOrderQuantity int              `json:"minimumOrderQuantity" validate:"omitempty,gte=1"`
	Meta                 SourceMeta       `json:"meta"`
	Thumbnail            string           `json:"thumbnail"`
	Images               []string         `json:"images"`
}

// SourceDimensions holds the nested package dimensions block.
type SourceDimensions struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
	Depth  float64 `json:"depth" validate:"gte=0"`
}

// SourceReview is a customer review as served by the source. The review
// date arrives as an RFC 3339 string and is parsed during conversion.
type SourceReview struct {
	Rating        int    `json:"rating" validate:"gte=0,lte=5"`
	Comment       string `json:"comment"`
	Date          string `json:"date"`
	ReviewerName  string `json:"reviewerName"`
	ReviewerEmail string `json:"reviewerEmail"`
}

// SourceMeta holds the source's metadata block.
type SourceMeta struct {
	Barcode string `json:"barcode"`
	QRCode  string `json:"qrCode"`
}

// Validate normalizes whitespace on identifying fields and checks the
// record against the source contract.
func (r *SourceRecord) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.SKU = strings.TrimSpace(r.SKU)
	r.Category = strings.TrimSpace(r.Category)
	r.Brand = strings.TrimSpace(r.Brand)

	if err := validator.Validate(r); err != nil {
		return err
	}
	return nil
}

// ToDomain converts a validated source record into a catalog product.
// The caller assigns the product ID and timestamps. Conversion fails if
// a review carries a date that is not RFC 3339.
func (r *SourceRecord) ToDomain() (*domain.Product, error) {
	p := &domain.Product{
		ExternalID:           r.ID,
		SKU:                  r.SKU,
		Title:                r.Title,
		Description:          r.Description,
		Category:             r.Category,
		Brand:                r.Brand,
		Price:                r.Price,
		DiscountPercentage:   r.DiscountPercentage,
		Rating:               r.Rating,
		Stock:                r.Stock,
		Weight:               r.Weight,
		Width:                r.Dimensions.Width,
		Height:               r.Dimensions.Height,
		Depth:                r.Dimensions.Depth,
		WarrantyInformation:  r.WarrantyInformation,
		ShippingInformation:  r.ShippingInformation,
		AvailabilityStatus:   r.AvailabilityStatus,
		ReturnPolicy:         r.ReturnPolicy,
		MinimumOrderQuantity: r.MinimumOrderQuantity,
		Barcode:              r.Meta.Barcode,
		QRCode:               r.Meta.QRCode,
		Tags:                 normalizeTags(r.Tags),
	}

	if r.Thumbnail != "" {
		p.Images = append(p.Images, domain.ProductImage{URL: r.Thumbnail, IsThumbnail: true})
	}
	for _, url := range r.Images {
		if url == "" || url == r.Thumbnail {
			continue
		}
		p.Images = append(p.Images, domain.ProductImage{URL: url})
	}

	for i, rev := range r.Reviews {
		reviewedAt, err := time.Parse(time.RFC3339, rev.Date)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("review %d: invalid date %q", i, rev.Date))
		}
		p.Reviews = append(p.Reviews, domain.ProductReview{
			Rating:        rev.Rating,
			Comment:       rev.Comment,
			ReviewerName:  rev.ReviewerName,
			ReviewerEmail: rev.ReviewerEmail,
			ReviewedAt:    reviewedAt,
		})
	}

	return p, nil
}

// normalizeTags lowercases, trims, and deduplicates tags while keeping
// their original order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
