package domain

import (
	"time"
)

// Search modes.
const (
	ModeRelevance = "relevance"
	ModeWildcard  = "wildcard"
)

// ValidModes returns the list of valid search modes.
func ValidModes() []string {
	return []string{ModeRelevance, ModeWildcard}
}

// IsValidMode checks whether the given string is a valid search mode.
func IsValidMode(mode string) bool {
	for _, m := range ValidModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// ProductDocument is the denormalized projection of a product stored in the
// search index. The index is a derived, rebuildable view: only the document id
// is ever read back, everything else exists for matching and boosting.
type ProductDocument struct {
	ID                 string    `json:"id"`
	ExternalID         int64     `json:"external_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	Brand              string    `json:"brand"`
	SKU                string    `json:"sku"`
	Price              float64   `json:"price"`
	DiscountPercentage float64   `json:"discount_percentage"`
	Rating             float64   `json:"rating"`
	Stock              int       `json:"stock"`
	Tags               []string  `json:"tags"`
	Thumbnail          string    `json:"thumbnail"`
	AvailabilityStatus string    `json:"availability_status"`
	CreatedAt          time.Time `json:"created_at"`
}

// SearchQuery holds the parameters for an index query.
type SearchQuery struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
	Limit int    `json:"limit"`
}

// SearchHits is the raw index response: ranked document ids only. Field
// values come from the store during hydration, never from the index.
type SearchHits struct {
	IDs    []string `json:"ids"`
	Total  int      `json:"total"`
	TookMs int64    `json:"took_ms"`
}

// BulkResult reports per-item accounting for one bulk index call.
type BulkResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// SearchResult is the hydrated search response served to callers, ordered by
// index ranking.
type SearchResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Query    string    `json:"query"`
	Mode     string    `json:"mode"`
	TookMs   int64     `json:"took_ms"`
}
