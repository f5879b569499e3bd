// Package main implements a standalone stub of the upstream catalog source
// for local development. It serves a deterministic, dummyjson-shaped product
// listing so the full ingestion pipeline can run without network access:
//
//	go run ./scripts/sourcestub -port 9300 -count 120
//	CATALOG_SOURCE_BASE_URL=http://localhost:9300 go run ./cmd/server
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// sourceProduct mirrors the upstream source's camelCase wire format.
type sourceProduct struct {
	ID                   int64             `json:"id"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Category             string            `json:"category"`
	Price                float64           `json:"price"`
	DiscountPercentage   float64           `json:"discountPercentage"`
	Rating               float64           `json:"rating"`
	Stock                int               `json:"stock"`
	Tags                 []string          `json:"tags"`
	Brand                string            `json:"brand"`
	SKU                  string            `json:"sku"`
	Weight               float64           `json:"weight"`
	Dimensions           sourceDimensions  `json:"dimensions"`
	WarrantyInformation  string            `json:"warrantyInformation"`
	ShippingInformation  string            `json:"shippingInformation"`
	AvailabilityStatus   string            `json:"availabilityStatus"`
	Reviews              []sourceReview    `json:"reviews"`
	ReturnPolicy         string            `json:"returnPolicy"`
	MinimumOrderQuantity int               `json:"minimumOrderQuantity"`
	Meta                 map[string]string `json:"meta"`
	Thumbnail            string            `json:"thumbnail"`
	Images               []string          `json:"images"`
}

type sourceDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

type sourceReview struct {
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
	Date          string `json:"date"`
	ReviewerName  string `json:"reviewerName"`
	ReviewerEmail string `json:"reviewerEmail"`
}

// categoryDef groups the word pools used to generate products of one category.
type categoryDef struct {
	name       string
	brands     []string
	adjectives []string
	nouns      []string
	tags       []string
}

var categories = []categoryDef{
	{
		name:       "Beauty",
		brands:     []string{"Essence", "Glamour Beauty", "Velvet Touch"},
		adjectives: []string{"Radiant", "Silky", "Matte", "Hydrating"},
		nouns:      []string{"Mascara", "Lipstick", "Foundation", "Face Serum", "Eyeshadow Palette"},
		tags:       []string{"beauty", "makeup", "skincare"},
	},
	{
		name:       "Electronics",
		brands:     []string{"TechBrand", "VoltEdge", "Nimbus"},
		adjectives: []string{"Wireless", "Portable", "Smart", "Ultra"},
		nouns:      []string{"Headphones", "Keyboard", "Webcam", "Power Bank", "Speaker"},
		tags:       []string{"electronics", "gadgets", "tech"},
	},
	{
		name:       "Groceries",
		brands:     []string{"", "Harvest Co", "Daily Fresh"},
		adjectives: []string{"Organic", "Fresh", "Roasted", "Whole Grain"},
		nouns:      []string{"Coffee Beans", "Olive Oil", "Honey", "Pasta", "Almonds"},
		tags:       []string{"groceries", "food", "pantry"},
	},
	{
		name:       "Furniture",
		brands:     []string{"HomeEssentials", "Oak & Iron", "Nordic Living"},
		adjectives: []string{"Classic", "Modern", "Rustic", "Compact"},
		nouns:      []string{"Armchair", "Bookshelf", "Coffee Table", "Desk Lamp", "Bed Frame"},
		tags:       []string{"furniture", "home", "decor"},
	},
	{
		name:       "Sports Accessories",
		brands:     []string{"SportPro", "Apex Gear", "TrailMax"},
		adjectives: []string{"Lightweight", "Durable", "Insulated", "Foldable"},
		nouns:      []string{"Yoga Mat", "Water Bottle", "Resistance Bands", "Backpack", "Dumbbell Set"},
		tags:       []string{"sports", "fitness", "outdoors"},
	},
}

var reviewComments = []string{
	"Very unhappy with my purchase!",
	"Would not recommend this product.",
	"Does the job, nothing fancy.",
	"Very pleased with the quality.",
	"Exceeded my expectations, highly recommended!",
}

var reviewers = []struct{ name, email string }{
	{"Ava Harrison", "ava.harrison@x.dummyjson.com"},
	{"Liam Garcia", "liam.garcia@x.dummyjson.com"},
	{"Sophia Brown", "sophia.brown@x.dummyjson.com"},
	{"Noah Hernandez", "noah.hernandez@x.dummyjson.com"},
	{"Mia Rodriguez", "mia.rodriguez@x.dummyjson.com"},
}

var availabilityStatuses = []string{"In Stock", "In Stock", "In Stock", "Low Stock"}

// generate builds count deterministic products from the given seed so
// repeated runs serve identical catalogs.
func generate(count int, seed int64) []sourceProduct {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	products := make([]sourceProduct, 0, count)
	for i := 0; i < count; i++ {
		id := int64(i + 1)
		cat := categories[i%len(categories)]

		adj := cat.adjectives[rng.Intn(len(cat.adjectives))]
		noun := cat.nouns[rng.Intn(len(cat.nouns))]
		title := fmt.Sprintf("%s %s %d", adj, noun, id)
		slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))

		reviewCount := rng.Intn(4)
		reviews := make([]sourceReview, 0, reviewCount)
		for j := 0; j < reviewCount; j++ {
			rating := 1 + rng.Intn(5)
			reviewer := reviewers[rng.Intn(len(reviewers))]
			reviews = append(reviews, sourceReview{
				Rating:        rating,
				Comment:       reviewComments[rating-1],
				Date:          now.AddDate(0, 0, -rng.Intn(365)).Format(time.RFC3339),
				ReviewerName:  reviewer.name,
				ReviewerEmail: reviewer.email,
			})
		}

		imageCount := 1 + rng.Intn(3)
		images := make([]string, 0, imageCount)
		for j := 0; j < imageCount; j++ {
			images = append(images, fmt.Sprintf("https://picsum.photos/seed/%s-%d/800/800", slug, j+1))
		}

		products = append(products, sourceProduct{
			ID:                 id,
			Title:              title,
			Description:        fmt.Sprintf("The %s is a quality %s from our %s range.", title, strings.ToLower(noun), strings.ToLower(cat.name)),
			Category:           cat.name,
			Price:              float64(500+rng.Intn(29500)) / 100,
			DiscountPercentage: float64(rng.Intn(2000)) / 100,
			Rating:             float64(250+rng.Intn(250)) / 100,
			Stock:              rng.Intn(200),
			Tags:               cat.tags[:1+rng.Intn(len(cat.tags))],
			Brand:              cat.brands[rng.Intn(len(cat.brands))],
			SKU:                fmt.Sprintf("%c%c%c%c%04d", 'A'+rng.Intn(26), 'A'+rng.Intn(26), 'A'+rng.Intn(26), 'A'+rng.Intn(26), id),
			Weight:             float64(1+rng.Intn(20)) / 2,
			Dimensions: sourceDimensions{
				Width:  float64(500 + rng.Intn(2500)/100),
				Height: float64(500 + rng.Intn(2500)/100),
				Depth:  float64(500 + rng.Intn(2500)/100),
			},
			WarrantyInformation:  "1 year warranty",
			ShippingInformation:  "Ships in 1-2 business days",
			AvailabilityStatus:   availabilityStatuses[rng.Intn(len(availabilityStatuses))],
			Reviews:              reviews,
			ReturnPolicy:         "30 days return policy",
			MinimumOrderQuantity: 1 + rng.Intn(4),
			Meta: map[string]string{
				"barcode": fmt.Sprintf("%013d", 1000000000000+rng.Int63n(9000000000000)),
				"qrCode":  "https://cdn.dummyjson.com/public/qr-code.png",
			},
			Thumbnail: fmt.Sprintf("https://picsum.photos/seed/%s-thumb/400/400", slug),
			Images:    images,
		})
	}
	return products
}

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[sourcestub] ")

	var (
		port  int
		count int
		seed  int64
	)
	flag.IntVar(&port, "port", 9300, "port to listen on")
	flag.IntVar(&count, "count", 120, "number of products to serve")
	flag.Int64Var(&seed, "seed", 42, "random seed for deterministic generation")
	flag.Parse()

	catalog := generate(count, seed)
	log.Printf("generated %d products across %d categories", len(catalog), len(categories))

	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		limit := 30
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, `{"message":"invalid limit"}`, http.StatusBadRequest)
				return
			}
			if n > 0 {
				limit = n
			} else {
				limit = len(catalog)
			}
		}
		skip := 0
		if v := r.URL.Query().Get("skip"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, `{"message":"invalid skip"}`, http.StatusBadRequest)
				return
			}
			skip = n
		}

		page := []sourceProduct{}
		if skip < len(catalog) {
			end := skip + limit
			if end > len(catalog) {
				end = len(catalog)
			}
			page = catalog[skip:end]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"products": page,
			"total":    len(catalog),
			"skip":     skip,
			"limit":    limit,
		})
		log.Printf("GET /products limit=%d skip=%d -> %d records", limit, skip, len(page))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
