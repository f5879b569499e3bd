// Package memory implements the search engine contract with an
// in-process index. It backs unit tests and single-node deployments
// where running Elasticsearch is not worth the overhead.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veloxcart/catalogd/internal/domain"
)

// Engine is an in-memory implementation of the SearchEngine interface.
// It provides substring matching with simple field weighting.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.ProductDocument
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		docs: make(map[string]domain.ProductDocument),
	}
}

// Ping always succeeds: the index lives in this process.
func (e *Engine) Ping(_ context.Context) error {
	return nil
}

// Index adds or updates a single document in the in-memory index.
func (e *Engine) Index(_ context.Context, doc *domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = *doc
	return nil
}

// BulkIndex adds or updates multiple documents. In-memory writes cannot
// partially fail, so the result always reports every document indexed.
func (e *Engine) BulkIndex(_ context.Context, docs []domain.ProductDocument) (*domain.BulkResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return &domain.BulkResult{Indexed: len(docs)}, nil
}

// Delete removes a document from the in-memory index by its ID.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// scoredDoc pairs a document with its match score for ranking.
type scoredDoc struct {
	doc   domain.ProductDocument
	score int
}

// Search executes a query against the in-memory index and returns ranked
// document IDs.
func (e *Engine) Search(_ context.Context, query *domain.SearchQuery) (*domain.SearchHits, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	queryLower := strings.ToLower(query.Query)
	matched := make([]scoredDoc, 0)

	for _, d := range e.docs {
		score := e.score(d, query.Mode, queryLower)
		if score <= 0 {
			continue
		}
		matched = append(matched, scoredDoc{doc: d, score: score})
	}

	// Rank by score, newest first within a score, ID as the final
	// tie-break so ordering is stable across runs.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		if !matched[i].doc.CreatedAt.Equal(matched[j].doc.CreatedAt) {
			return matched[i].doc.CreatedAt.After(matched[j].doc.CreatedAt)
		}
		return matched[i].doc.ID < matched[j].doc.ID
	})

	total := len(matched)

	limit := query.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if limit > total {
		limit = total
	}

	ids := make([]string, 0, limit)
	for _, m := range matched[:limit] {
		ids = append(ids, m.doc.ID)
	}

	return &domain.SearchHits{
		IDs:    ids,
		Total:  total,
		TookMs: time.Since(start).Milliseconds(),
	}, nil
}

// score computes a match score for the document. Zero means no match.
func (e *Engine) score(d domain.ProductDocument, mode, queryLower string) int {
	if queryLower == "" {
		// Blank query matches everything at equal weight.
		return 1
	}

	titleLower := strings.ToLower(d.Title)
	categoryLower := strings.ToLower(d.Category)

	if mode == domain.ModeWildcard {
		// Substring containment on title or category, no weighting.
		if strings.Contains(titleLower, queryLower) || strings.Contains(categoryLower, queryLower) {
			return 1
		}
		return 0
	}

	score := 0
	if strings.Contains(titleLower, queryLower) {
		score += 3
	}
	if strings.Contains(strings.ToLower(d.Brand), queryLower) {
		score += 2
	}
	if strings.Contains(categoryLower, queryLower) {
		score += 2
	}
	if strings.Contains(strings.ToLower(d.Description), queryLower) {
		score++
	}
	return score
}

// Suggest returns unique titles whose title or any title word starts
// with the given prefix, sorted alphabetically.
func (e *Engine) Suggest(_ context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	prefixLower := strings.ToLower(prefix)

	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]struct{})
	var titles []string
	for _, d := range e.docs {
		if _, ok := seen[d.Title]; ok {
			continue
		}
		if !titleHasPrefix(d.Title, prefixLower) {
			continue
		}
		seen[d.Title] = struct{}{}
		titles = append(titles, d.Title)
	}

	sort.Strings(titles)
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, nil
}

func titleHasPrefix(title, prefixLower string) bool {
	titleLower := strings.ToLower(title)
	if strings.HasPrefix(titleLower, prefixLower) {
		return true
	}
	for _, word := range strings.Fields(titleLower) {
		if strings.HasPrefix(word, prefixLower) {
			return true
		}
	}
	return false
}
