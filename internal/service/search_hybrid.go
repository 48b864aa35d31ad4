package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/metrics"
	"github.com/cairoware/tourbase/internal/telemetry"
)

// HybridSearch fuses the vector, text and geo searchers into one ranked
// list. Only the dimensions populated on the filter are invoked; each
// contributes its score times its fixed weight, and scores for the same
// record are summed across searchers so a record ranked well by two
// signals outranks one ranked well by only one. A filter with no populated
// dimension yields an empty result, never an unfiltered dump.
func (s *SearchService) HybridSearch(ctx context.Context, filter SearchFilter) ([]*SearchResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "SearchService.HybridSearch", telemetry.SpanAttributes{
		Table:      filter.Table,
		SearchType: string(SearchTypeHybrid),
	})
	defer span.End()

	spec, err := domain.TableFor(filter.Table)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if err := validateFilters(filter.Filters); err != nil {
		span.SetError(err)
		return nil, err
	}
	limit, err := normalizeLimit(filter.Limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	filter.Limit = limit

	// Keyed on the caller's filter, before any generated query embedding,
	// so a cache hit also skips the embedding call.
	cacheFilter := filter
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheFilter); ok {
			metrics.ObserveSearch(string(SearchTypeHybrid), filter.Table, time.Since(start), len(cached))
			return cached, nil
		}
	}

	type searcher struct {
		name   SearchType
		weight float64
		run    func(ctx context.Context, limit int) ([]*SearchResult, error)
	}

	// A text-only request still gets a vector dimension when an embedding
	// client is configured and the table stores embeddings; the caller
	// asked for nothing vector-shaped, so a table without the column just
	// means no generated dimension. Embedding failures degrade to text-only.
	if len(filter.Embedding) == 0 && filter.TextQuery != "" && s.embedder != nil && spec.HasEmbedding {
		embedding, err := s.embedder.GenerateEmbedding(ctx, filter.TextQuery)
		if err != nil {
			log.Printf("hybrid search: query embedding failed (table=%s): %v", filter.Table, err)
			telemetry.CaptureError(ctx, err)
		} else {
			filter.Embedding = embedding
		}
	}

	// Fixed invocation order keeps accumulation deterministic even though
	// the searchers have no data dependency on each other.
	var searchers []searcher
	if len(filter.Embedding) > 0 {
		if err := validateEmbedding(filter.Embedding, s.cfg.EmbeddingDimensions); err != nil {
			span.SetError(err)
			return nil, err
		}
		searchers = append(searchers, searcher{
			name:   SearchTypeVector,
			weight: vectorWeight,
			run: func(ctx context.Context, limit int) ([]*SearchResult, error) {
				return s.vectorSearch(ctx, filter.Table, filter.Embedding, filter.Filters, limit, 0)
			},
		})
	}
	if filter.TextQuery != "" {
		searchers = append(searchers, searcher{
			name:   SearchTypeText,
			weight: textWeight,
			run: func(ctx context.Context, limit int) ([]*SearchResult, error) {
				return s.textSearch(ctx, filter.Table, filter.TextQuery, filter.Filters, limit, 0)
			},
		})
	}
	if filter.Location != nil {
		loc := *filter.Location
		if filter.RadiusKm <= 0 {
			span.SetError(domain.ErrInvalidRadius)
			return nil, domain.ErrInvalidRadius
		}
		searchers = append(searchers, searcher{
			name:   SearchTypeGeo,
			weight: geoWeight,
			run: func(ctx context.Context, limit int) ([]*SearchResult, error) {
				return s.geoSearch(ctx, filter.Table, loc.Latitude, loc.Longitude, filter.RadiusKm, filter.Filters, limit, 0)
			},
		})
	}

	if len(searchers) == 0 {
		return []*SearchResult{}, nil
	}

	candidateLimit := limit * hybridCandidateMultiplier
	combined := make(map[int64]*SearchResult)
	var order []int64
	var failures []error

	for _, sr := range searchers {
		results, err := s.runSearcher(ctx, sr.run, candidateLimit)
		if err != nil {
			if isCallerError(err) {
				span.SetError(err)
				return nil, err
			}
			log.Printf("hybrid search: %s searcher failed (table=%s): %v", sr.name, filter.Table, err)
			telemetry.CaptureError(ctx, err)
			metrics.SearchErrors(string(sr.name), filter.Table)
			failures = append(failures, err)
			continue
		}
		for _, r := range results {
			id := r.Record.ID
			entry, ok := combined[id]
			if !ok {
				entry = &SearchResult{
					Record:     r.Record,
					SearchType: SearchTypeHybrid,
				}
				combined[id] = entry
				order = append(order, id)
			}
			entry.Score += r.Score * sr.weight
			if r.DistanceKm != nil && entry.DistanceKm == nil {
				entry.DistanceKm = r.DistanceKm
			}
		}
	}

	// A degraded search with at least one live searcher still ranks; only
	// a total failure is reported as such.
	if len(failures) == len(searchers) {
		span.SetError(errors.Join(failures...))
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable,
			"all searchers failed", domain.ErrSearchUnavailable)
	}

	results := make([]*SearchResult, 0, len(combined))
	for _, id := range order {
		results = append(results, combined[id])
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	// Degraded rankings are not cached so a recovered searcher is reflected
	// on the next call.
	if s.cache != nil && len(failures) == 0 {
		s.cache.Set(ctx, cacheFilter, results)
	}

	metrics.ObserveSearch(string(SearchTypeHybrid), filter.Table, time.Since(start), len(results))
	return results, nil
}

// runSearcher applies the per-searcher timeout; a timed-out searcher
// contributes nothing rather than failing the whole call.
func (s *SearchService) runSearcher(ctx context.Context, run func(context.Context, int) ([]*SearchResult, error), limit int) ([]*SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SearcherTimeout)
	defer cancel()
	return run(ctx, limit)
}
