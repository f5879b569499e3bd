package integration

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

const catalogPort = 8080

// ensureCatalogIngested triggers an ingestion run and waits until products
// are visible. A 409 means a run is already in flight, which is fine; the
// poll below covers both cases.
func ensureCatalogIngested(t *testing.T, port int) map[string]interface{} {
	t.Helper()

	status, data := httpPost(t, baseURL(port)+"/api/v1/ingest", nil)
	if status != http.StatusAccepted && status != http.StatusConflict {
		t.Fatalf("trigger ingest returned %d, want 202 or 409: %v", status, data)
	}

	return waitForProducts(t, port, 60*time.Second)
}

// TestIngestFlow verifies that triggering ingestion eventually makes
// products available through the listing and detail endpoints.
func TestIngestFlow(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	listing := ensureCatalogIngested(t, catalogPort)

	products, ok := extractField(listing, "data").([]interface{})
	if !ok || len(products) == 0 {
		t.Fatalf("expected non-empty data array in listing, got %v", listing["data"])
	}

	first, ok := products[0].(map[string]interface{})
	if !ok {
		t.Fatalf("expected product object, got %T", products[0])
	}
	productID, _ := first["id"].(string)
	if productID == "" {
		t.Fatal("expected product id in listing entry")
	}

	// Retrieve the product by ID.
	getStatus, getData := httpGet(t, baseURL(catalogPort)+"/api/v1/products/"+productID)
	requireStatus(t, getStatus, 200)

	retrievedID := extractString(t, getData, "data.id")
	if retrievedID != productID {
		t.Fatalf("expected product id %s, got %s", productID, retrievedID)
	}
	if extractString(t, getData, "data.sku") == "" {
		t.Fatal("expected non-empty sku on product detail")
	}
}

// TestCategoriesListing verifies that ingested products surface their
// categories with product counts.
func TestCategoriesListing(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	ensureCatalogIngested(t, catalogPort)

	status, data := httpGet(t, baseURL(catalogPort)+"/api/v1/categories")
	requireStatus(t, status, 200)

	categories, ok := extractField(data, "data").([]interface{})
	if !ok || len(categories) == 0 {
		t.Fatalf("expected non-empty categories array, got %v", data["data"])
	}

	first, ok := categories[0].(map[string]interface{})
	if !ok {
		t.Fatalf("expected category object, got %T", categories[0])
	}
	if slug, _ := first["slug"].(string); slug == "" {
		t.Fatal("expected non-empty category slug")
	}
	if count, _ := first["product_count"].(float64); count < 1 {
		t.Fatalf("expected product_count >= 1, got %v", first["product_count"])
	}
}

// TestSearchFlow verifies that ingested products are findable through
// search and that suggestions complete their titles.
func TestSearchFlow(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	listing := ensureCatalogIngested(t, catalogPort)

	products := extractField(listing, "data").([]interface{})
	first := products[0].(map[string]interface{})
	title, _ := first["title"].(string)
	if title == "" {
		t.Fatal("expected product title in listing entry")
	}

	// Search by the full title; the matching product must rank somewhere
	// in the result set.
	status, data := httpGet(t, baseURL(catalogPort)+"/api/v1/search?q="+url.QueryEscape(title)+"&limit=100")
	requireStatus(t, status, 200)

	if total := extractFloat(t, data, "data.total"); total < 1 {
		t.Fatalf("expected at least one search hit for %q, got total=%v", title, total)
	}

	// Suggestions for the first word of the title must not be empty.
	prefix := strings.Fields(title)[0]
	sugStatus, sugData := httpGet(t, baseURL(catalogPort)+"/api/v1/search/suggest?q="+url.QueryEscape(prefix))
	requireStatus(t, sugStatus, 200)

	suggestions, ok := extractField(sugData, "data.suggestions").([]interface{})
	if !ok {
		t.Fatalf("expected suggestions array, got %v", sugData)
	}
	if len(suggestions) == 0 {
		t.Fatalf("expected suggestions for prefix %q", prefix)
	}
}

// TestDeleteProductFlow verifies that deleting a product removes it from
// both the store and the search index.
func TestDeleteProductFlow(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	listing := ensureCatalogIngested(t, catalogPort)

	products := extractField(listing, "data").([]interface{})
	first := products[0].(map[string]interface{})
	productID, _ := first["id"].(string)
	title, _ := first["title"].(string)

	delStatus, _ := httpDelete(t, baseURL(catalogPort)+"/api/v1/products/"+productID)
	requireStatus(t, delStatus, 200)

	// The detail endpoint must now 404.
	getStatus, _ := httpGet(t, baseURL(catalogPort)+"/api/v1/products/"+productID)
	requireStatus(t, getStatus, 404)

	// The deleted product must no longer appear in search results.
	searchStatus, searchData := httpGet(t, baseURL(catalogPort)+"/api/v1/search?q="+url.QueryEscape(title)+"&limit=100")
	requireStatus(t, searchStatus, 200)

	hits, _ := extractField(searchData, "data.products").([]interface{})
	for _, h := range hits {
		hit, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		if hit["id"] == productID {
			t.Fatalf("deleted product %s still present in search results", productID)
		}
	}
}

// TestReindexEndpoint verifies that a reindex run can be triggered.
func TestReindexEndpoint(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	status, data := httpPost(t, baseURL(catalogPort)+"/api/v1/reindex", nil)
	if status != http.StatusAccepted && status != http.StatusConflict {
		t.Fatalf("trigger reindex returned %d, want 202 or 409: %v", status, data)
	}

	if status == http.StatusAccepted {
		if got := extractString(t, data, "data.status"); got != "reindex started" {
			t.Fatalf("expected status %q, got %q", "reindex started", got)
		}
	}
}
