package domain

import (
	"time"
)

// Product is the persisted catalog record, the system of record for search
// hydration. Reads always carry the nested children (images, reviews, tags)
// so downstream consumers never observe partially loaded products.
type Product struct {
	ID                   string          `json:"id"`
	ExternalID           int64           `json:"external_id"`
	SKU                  string          `json:"sku"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Category             string          `json:"category"`
	CategorySlug         string          `json:"category_slug"`
	Brand                string          `json:"brand,omitempty"`
	Price                float64         `json:"price"`
	DiscountPercentage   float64         `json:"discount_percentage"`
	Rating               float64         `json:"rating"`
	Stock                int             `json:"stock"`
	Weight               float64         `json:"weight"`
	Width                float64         `json:"width"`
	Height               float64         `json:"height"`
	Depth                float64         `json:"depth"`
	WarrantyInformation  string          `json:"warranty_information,omitempty"`
	ShippingInformation  string          `json:"shipping_information,omitempty"`
	AvailabilityStatus   string          `json:"availability_status,omitempty"`
	ReturnPolicy         string          `json:"return_policy,omitempty"`
	MinimumOrderQuantity int             `json:"minimum_order_quantity"`
	Barcode              string          `json:"barcode,omitempty"`
	QRCode               string          `json:"qr_code,omitempty"`
	Tags                 []string        `json:"tags"`
	Images               []ProductImage  `json:"images"`
	Reviews              []ProductReview `json:"reviews"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ProductImage is a gallery image attached to a product. The source thumbnail
// is stored as a regular image row flagged IsThumbnail.
type ProductImage struct {
	URL         string `json:"url"`
	IsThumbnail bool   `json:"is_thumbnail,omitempty"`
}

// ProductReview is a customer review attached to a product.
type ProductReview struct {
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	ReviewerName  string    `json:"reviewer_name"`
	ReviewerEmail string    `json:"reviewer_email"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

// Thumbnail returns the URL of the image flagged as thumbnail, falling back
// to the first gallery image, or "" when the product has no images.
func (p *Product) Thumbnail() string {
	for _, img := range p.Images {
		if img.IsThumbnail {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// Category is a catalog category referenced by at least one product.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ProductCount int    `json:"product_count"`
}
