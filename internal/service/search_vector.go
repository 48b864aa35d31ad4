package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/metrics"
	"github.com/cairoware/tourbase/internal/telemetry"
)

// VectorSearch returns the records nearest to the query embedding, best
// first. Caller-input errors (bad table, malformed embedding, unsafe filter
// column) surface; backend failures are logged and yield an empty list.
func (s *SearchService) VectorSearch(ctx context.Context, table string, embedding []float32, filters map[string]any, limit, offset int) ([]*SearchResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "SearchService.VectorSearch", telemetry.SpanAttributes{
		Table:      table,
		SearchType: string(SearchTypeVector),
	})
	defer span.End()

	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	results, err := s.vectorSearch(ctx, table, embedding, filters, limit, offset)
	if err != nil {
		if isCallerError(err) {
			span.SetError(err)
			return nil, err
		}
		log.Printf("vector search failed (table=%s): %v", table, err)
		telemetry.CaptureError(ctx, err)
		metrics.SearchErrors(string(SearchTypeVector), table)
		return []*SearchResult{}, nil
	}

	metrics.ObserveSearch(string(SearchTypeVector), table, time.Since(start), len(results))
	return results, nil
}

// vectorSearch is the error-transparent variant used by hybrid fusion,
// which needs to distinguish a failed searcher from an empty one.
func (s *SearchService) vectorSearch(ctx context.Context, table string, embedding []float32, filters map[string]any, limit, offset int) ([]*SearchResult, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}
	if !spec.HasEmbedding {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("table %q has no embedding column", table), domain.ErrTableCapability)
	}
	if err := validateEmbedding(embedding, s.cfg.EmbeddingDimensions); err != nil {
		return nil, err
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	matches, err := s.repo.VectorSearch(ctx, table, embedding, filters, limit, offset)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, &SearchResult{
			Record: m.Record,
			// Cosine distance, so closer embeddings always score higher.
			Score:      1 - m.Distance,
			SearchType: SearchTypeVector,
		})
	}
	sortResults(results)
	return results, nil
}

// sortResults orders descending by score with record ID ascending as the
// stable tie break, so identical inputs always produce identical ordering.
func sortResults(results []*SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})
}

// isCallerError reports whether an error is caller misuse rather than an
// operational failure. Misuse must never degrade to an empty result.
func isCallerError(err error) bool {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == domain.ErrCodeValidation
}
