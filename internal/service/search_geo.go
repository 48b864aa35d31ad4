package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/metrics"
	"github.com/cairoware/tourbase/internal/telemetry"
)

// GeoSearch returns records within radiusKm of the center point, closest
// first. A record at the center scores 1.0 and one at the boundary 0.0;
// scores never go negative. Records without coordinates are excluded.
func (s *SearchService) GeoSearch(ctx context.Context, table string, lat, lon, radiusKm float64, filters map[string]any, limit, offset int) ([]*SearchResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "SearchService.GeoSearch", telemetry.SpanAttributes{
		Table:      table,
		SearchType: string(SearchTypeGeo),
	})
	defer span.End()

	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	results, err := s.geoSearch(ctx, table, lat, lon, radiusKm, filters, limit, offset)
	if err != nil {
		if isCallerError(err) {
			span.SetError(err)
			return nil, err
		}
		log.Printf("geo search failed (table=%s): %v", table, err)
		telemetry.CaptureError(ctx, err)
		metrics.SearchErrors(string(SearchTypeGeo), table)
		return []*SearchResult{}, nil
	}

	metrics.ObserveSearch(string(SearchTypeGeo), table, time.Since(start), len(results))
	return results, nil
}

func (s *SearchService) geoSearch(ctx context.Context, table string, lat, lon, radiusKm float64, filters map[string]any, limit, offset int) ([]*SearchResult, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}
	if !spec.HasGeo {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("table %q has no coordinates", table), domain.ErrTableCapability)
	}
	if !domain.ValidCoordinates(lat, lon) {
		return nil, domain.ErrInvalidCoordinates
	}
	if radiusKm <= 0 {
		return nil, domain.ErrInvalidRadius
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	minLat, maxLat, minLon, maxLon := domain.BoundingBox(lat, lon, radiusKm)
	candidates, err := s.repo.GeoCandidates(ctx, table, minLat, maxLat, minLon, maxLon, filters, maxGeoCandidates)
	if err != nil {
		return nil, err
	}

	// The bounding box over-selects at the corners; the exact great-circle
	// check decides membership.
	results := make([]*SearchResult, 0, len(candidates))
	for _, rec := range candidates {
		if !rec.HasCoordinates() {
			continue
		}
		distance := domain.Haversine(lat, lon, *rec.Latitude, *rec.Longitude)
		if distance > radiusKm {
			continue
		}
		score := 1 - distance/radiusKm
		if score < 0 {
			score = 0
		}
		d := distance
		results = append(results, &SearchResult{
			Record:     rec,
			Score:      score,
			SearchType: SearchTypeGeo,
			DistanceKm: &d,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if *results[i].DistanceKm != *results[j].DistanceKm {
			return *results[i].DistanceKm < *results[j].DistanceKm
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if offset > 0 {
		if offset >= len(results) {
			return []*SearchResult{}, nil
		}
		results = results[offset:]
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
