package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
)

// SearchType identifies which searcher produced a result.
type SearchType string

const (
	SearchTypeVector SearchType = "vector"
	SearchTypeText   SearchType = "text"
	SearchTypeGeo    SearchType = "geo"
	SearchTypeHybrid SearchType = "hybrid"
)

// Fixed fusion weights. Constant on purpose: per-call weights would make
// ranking nondeterministic across deployments and untestable.
const (
	vectorWeight = 0.4
	textWeight   = 0.4
	geoWeight    = 0.2

	// Each searcher over-fetches this multiple of the requested limit so
	// fusion has enough candidates before the final truncation.
	hybridCandidateMultiplier = 2

	defaultLimit = 10

	// Bounding-box candidates fetched per geo search before the exact
	// haversine filter.
	maxGeoCandidates = 1000
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// SearchFilter describes one search request across any combination of the
// vector, text and geo dimensions.
type SearchFilter struct {
	Table     string
	TextQuery string
	Embedding []float32
	Location  *GeoPoint
	RadiusKm  float64
	// Filters are exact-match column constraints ANDed with the search
	// condition. Column names must pass domain.ValidColumnName.
	Filters map[string]any
	Limit   int
	// Offset applies to the single-searcher paths only; hybrid search
	// always ranks from the top.
	Offset int
}

// SearchResult is one ranked match.
type SearchResult struct {
	Record     *domain.Record
	Score      float64
	SearchType SearchType
	// DistanceKm is set when a geo component contributed.
	DistanceKm *float64
}

// VectorMatch pairs a record with its raw vector distance.
type VectorMatch struct {
	Record   *domain.Record
	Distance float64
}

// SearchRepositoryInterface is the store-side contract the searchers run on.
type SearchRepositoryInterface interface {
	VectorSearch(ctx context.Context, table string, embedding []float32, filters map[string]any, limit, offset int) ([]*VectorMatch, error)
	TextSearch(ctx context.Context, table, query string, filters map[string]any, limit, offset int) ([]*domain.Record, error)
	Find(ctx context.Context, table string, filters map[string]any, limit, offset int) ([]*domain.Record, error)
	GeoCandidates(ctx context.Context, table string, minLat, maxLat, minLon, maxLon float64, filters map[string]any, limit int) ([]*domain.Record, error)
}

// EmbeddingClient generates query embeddings for text-only hybrid requests.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ResultCache caches ranked hybrid results keyed by the full filter.
// Implementations must treat the cache as best-effort: a miss or a cache
// backend failure is reported as a plain miss.
type ResultCache interface {
	Get(ctx context.Context, filter SearchFilter) ([]*SearchResult, bool)
	Set(ctx context.Context, filter SearchFilter, results []*SearchResult)
}

// SearchServiceConfig controls search behavior.
type SearchServiceConfig struct {
	// EmbeddingDimensions is the fixed embedding width of the deployment.
	// Zero disables the dimension check.
	EmbeddingDimensions int
	// SearcherTimeout bounds each underlying searcher within a hybrid call.
	SearcherTimeout time.Duration
}

// DefaultSearchServiceConfig returns the default configuration.
func DefaultSearchServiceConfig() SearchServiceConfig {
	return SearchServiceConfig{
		EmbeddingDimensions: 768,
		SearcherTimeout:     3 * time.Second,
	}
}

// SearchService runs vector, text and geo searches over the record store
// and fuses them into hybrid rankings.
type SearchService struct {
	repo     SearchRepositoryInterface
	cfg      SearchServiceConfig
	cache    ResultCache
	embedder EmbeddingClient
}

// NewSearchService creates a SearchService with default configuration.
func NewSearchService(repo SearchRepositoryInterface) *SearchService {
	return NewSearchServiceWithConfig(repo, DefaultSearchServiceConfig())
}

// NewSearchServiceWithConfig creates a SearchService with explicit configuration.
func NewSearchServiceWithConfig(repo SearchRepositoryInterface, cfg SearchServiceConfig) *SearchService {
	if cfg.SearcherTimeout <= 0 {
		cfg.SearcherTimeout = DefaultSearchServiceConfig().SearcherTimeout
	}
	return &SearchService{repo: repo, cfg: cfg}
}

// SetResultCache installs an optional hybrid-result cache.
func (s *SearchService) SetResultCache(cache ResultCache) {
	s.cache = cache
}

// SetEmbedder installs an optional embedding client. When set, hybrid
// requests that carry a text query but no embedding get a query embedding
// generated so the vector dimension can participate.
func (s *SearchService) SetEmbedder(embedder EmbeddingClient) {
	s.embedder = embedder
}

func normalizeLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, domain.ErrInvalidLimit
	}
	if limit == 0 {
		return defaultLimit, nil
	}
	return limit, nil
}

func validateFilters(filters map[string]any) error {
	for column := range filters {
		if !domain.ValidColumnName(column) {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
				fmt.Sprintf("unsafe filter column %q", column), domain.ErrUnsafeColumn)
		}
	}
	return nil
}

func validateEmbedding(embedding []float32, wantDims int) error {
	if len(embedding) == 0 {
		return domain.ErrInvalidEmbedding
	}
	for _, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.ErrInvalidEmbedding
		}
	}
	if wantDims > 0 && len(embedding) != wantDims {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("embedding has %d dimensions, want %d", len(embedding), wantDims),
			domain.ErrEmbeddingDimension)
	}
	return nil
}
