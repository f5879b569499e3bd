package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"

	"github.com/veloxcart/catalogd/internal/domain"
	"github.com/veloxcart/catalogd/internal/engine"
	"github.com/veloxcart/catalogd/internal/repository"
)

// SearchService executes queries against the search engine and hydrates the
// matched identifiers from the system of record.
type SearchService struct {
	engine engine.SearchEngine
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(eng engine.SearchEngine, repo repository.ProductRepository, logger *slog.Logger) *SearchService {
	return &SearchService{
		engine: eng,
		repo:   repo,
		logger: logger,
	}
}

// Search runs a query through the index and hydrates the ranked hits from
// the store, preserving index order. An unreachable engine degrades to an
// empty result instead of failing the request.
func (s *SearchService) Search(ctx context.Context, query string, limit int, mode string) (*domain.SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, apperrors.InvalidInput("search query must not be empty")
	}

	if mode == "" {
		mode = domain.ModeRelevance
	}
	if !domain.IsValidMode(mode) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid search mode %q, must be one of: %s", mode, strings.Join(domain.ValidModes(), ", ")))
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	hits, err := s.engine.Search(ctx, &domain.SearchQuery{
		Query: trimmed,
		Mode:  mode,
		Limit: limit,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "search engine unavailable, serving empty result",
			slog.String("query", trimmed),
			slog.String("error", err.Error()),
		)
		return emptyResult(trimmed, mode), nil
	}

	if len(hits.IDs) == 0 {
		result := emptyResult(trimmed, mode)
		result.Total = hits.Total
		result.TookMs = hits.TookMs
		return result, nil
	}

	products, err := s.repo.GetByIDs(ctx, hits.IDs)
	if err != nil {
		return nil, fmt.Errorf("hydrate search results: %w", err)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Reassemble in index ranking order, dropping stale hits whose store
	// row is gone.
	ordered := make([]domain.Product, 0, len(hits.IDs))
	for _, id := range hits.IDs {
		p, ok := byID[id]
		if !ok {
			s.logger.DebugContext(ctx, "dropping stale index hit",
				slog.String("product_id", id),
			)
			continue
		}
		ordered = append(ordered, p)
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", trimmed),
		slog.String("mode", mode),
		slog.Int("total", hits.Total),
		slog.Int64("took_ms", hits.TookMs),
	)

	return &domain.SearchResult{
		Products: ordered,
		Total:    hits.Total,
		Query:    trimmed,
		Mode:     mode,
		TookMs:   hits.TookMs,
	}, nil
}

// Suggest returns autocomplete title suggestions for the given prefix. Like
// Search, an unreachable engine yields an empty list, not an error.
func (s *SearchService) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return nil, apperrors.InvalidInput("suggest prefix must not be empty")
	}

	suggestions, err := s.engine.Suggest(ctx, trimmed, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "suggest engine unavailable, serving empty result",
			slog.String("prefix", trimmed),
			slog.String("error", err.Error()),
		)
		return []string{}, nil
	}

	return suggestions, nil
}

func emptyResult(query, mode string) *domain.SearchResult {
	return &domain.SearchResult{
		Products: []domain.Product{},
		Query:    query,
		Mode:     mode,
	}
}
