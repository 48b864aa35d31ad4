package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/metrics"
	"github.com/cairoware/tourbase/internal/telemetry"
)

// TextSearch matches the query as a case-insensitive substring across the
// table's searchable fields (every supported language of each localized
// field, plus the table's plain text fields), OR-combined. An empty query
// is not a wildcard: it defers entirely to the exact-match filters, and
// returns nothing when those are absent too.
func (s *SearchService) TextSearch(ctx context.Context, table, query string, filters map[string]any, limit, offset int) ([]*SearchResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "SearchService.TextSearch", telemetry.SpanAttributes{
		Table:      table,
		SearchType: string(SearchTypeText),
	})
	defer span.End()

	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	results, err := s.textSearch(ctx, table, query, filters, limit, offset)
	if err != nil {
		if isCallerError(err) {
			span.SetError(err)
			return nil, err
		}
		log.Printf("text search failed (table=%s): %v", table, err)
		telemetry.CaptureError(ctx, err)
		metrics.SearchErrors(string(SearchTypeText), table)
		return []*SearchResult{}, nil
	}

	metrics.ObserveSearch(string(SearchTypeText), table, time.Since(start), len(results))
	return results, nil
}

func (s *SearchService) textSearch(ctx context.Context, table, query string, filters map[string]any, limit, offset int) ([]*SearchResult, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if len(filters) == 0 {
			return []*SearchResult{}, nil
		}
		records, err := s.repo.Find(ctx, table, filters, limit, offset)
		if err != nil {
			return nil, err
		}
		results := make([]*SearchResult, 0, len(records))
		for i, rec := range records {
			results = append(results, &SearchResult{
				Record:     rec,
				Score:      positionScore(i),
				SearchType: SearchTypeText,
			})
		}
		return results, nil
	}

	records, err := s.repo.TextSearch(ctx, table, query, filters, limit, offset)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(records))
	for i, rec := range records {
		results = append(results, &SearchResult{
			Record:     rec,
			Score:      textScore(query, rec, spec, i),
			SearchType: SearchTypeText,
		})
	}
	sortResults(results)
	return results, nil
}

// textScore rates how tightly the query fits the record's best matching
// field. An exact field match scores 1.0; a substring match scores the
// query-to-field length ratio, so tighter fields rank higher. When no field
// value is available to compare, fall back to the store's result position.
func textScore(query string, rec *domain.Record, spec domain.TableSpec, position int) float64 {
	lowered := strings.ToLower(query)
	best := 0.0
	for _, value := range searchableValues(rec, spec) {
		candidate := strings.ToLower(strings.TrimSpace(value))
		if candidate == "" || !strings.Contains(candidate, lowered) {
			continue
		}
		if candidate == lowered {
			return 1.0
		}
		if ratio := float64(len(lowered)) / float64(len(candidate)); ratio > best {
			best = ratio
		}
	}
	if best == 0 {
		return positionScore(position)
	}
	return best
}

// positionScore is the coarse fallback signal: non-increasing in the
// store's result position.
func positionScore(position int) float64 {
	return 1.0 / float64(1+position)
}

func searchableValues(rec *domain.Record, spec domain.TableSpec) []string {
	var values []string
	for _, field := range spec.LocalizedFields {
		if text, err := domain.DecodeLocalizedText(rec.Data[field]); err == nil {
			for _, lang := range domain.SupportedLanguages {
				if v := text[lang]; v != "" {
					values = append(values, v)
				}
			}
		}
	}
	for _, field := range spec.TextFields {
		if v, ok := rec.Data[field].(string); ok && v != "" {
			values = append(values, v)
		}
	}
	return values
}
