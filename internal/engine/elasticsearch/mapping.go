package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for catalog
// product documents.
const DefaultIndexName = "catalog_products"

// buildIndexMapping returns the full JSON mapping for the catalog index,
// including the edge n-gram analyzer that backs title autocomplete.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                  { "type": "keyword" },
      "external_id":         { "type": "long" },
      "sku":                 { "type": "keyword" },
      "title":               { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "description":         { "type": "text" },
      "category":            { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "brand":               { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "price":               { "type": "double" },
      "discount_percentage": { "type": "double" },
      "rating":              { "type": "double" },
      "stock":               { "type": "integer" },
      "tags":                { "type": "keyword" },
      "thumbnail":           { "type": "keyword", "index": false },
      "availability_status": { "type": "keyword" },
      "created_at":          { "type": "date" }
    }
  }
}`
}
