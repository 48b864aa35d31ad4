package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSearchRepository is a mock implementation of SearchRepositoryInterface
type MockSearchRepository struct {
	mock.Mock
}

func (m *MockSearchRepository) VectorSearch(ctx context.Context, table string, embedding []float32, filters map[string]any, limit, offset int) ([]*VectorMatch, error) {
	args := m.Called(ctx, table, embedding, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*VectorMatch), args.Error(1)
}

func (m *MockSearchRepository) TextSearch(ctx context.Context, table, query string, filters map[string]any, limit, offset int) ([]*domain.Record, error) {
	args := m.Called(ctx, table, query, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Record), args.Error(1)
}

func (m *MockSearchRepository) Find(ctx context.Context, table string, filters map[string]any, limit, offset int) ([]*domain.Record, error) {
	args := m.Called(ctx, table, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Record), args.Error(1)
}

func (m *MockSearchRepository) GeoCandidates(ctx context.Context, table string, minLat, maxLat, minLon, maxLon float64, filters map[string]any, limit int) ([]*domain.Record, error) {
	args := m.Called(ctx, table, minLat, maxLat, minLon, maxLon, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Record), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func newTestService(repo SearchRepositoryInterface) *SearchService {
	return NewSearchServiceWithConfig(repo, SearchServiceConfig{
		EmbeddingDimensions: 3,
		SearcherTimeout:     time.Second,
	})
}

func testRecord(id int64) *domain.Record {
	return &domain.Record{
		ID:    id,
		Table: "attractions",
		Name:  domain.LocalizedText{"en": "Record"},
		Data:  map[string]any{"id": id},
	}
}

func geoRecord(id int64, lat, lon float64) *domain.Record {
	rec := testRecord(id)
	rec.Latitude = &lat
	rec.Longitude = &lon
	return rec
}

func TestVectorSearch_ScoresAndOrders(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	repo.On("VectorSearch", mock.Anything, "attractions", []float32{1, 0, 0}, mock.Anything, 10, 0).
		Return([]*VectorMatch{
			{Record: testRecord(1), Distance: 0.1},
			{Record: testRecord(2), Distance: 0.5},
		}, nil)

	results, err := svc.VectorSearch(context.Background(), "attractions", []float32{1, 0, 0}, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(1), results[0].Record.ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9)
	assert.Equal(t, SearchTypeVector, results[0].SearchType)
}

func TestVectorSearch_CallerErrorsSurface(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.VectorSearch(ctx, "nonexistent", []float32{1, 0, 0}, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTable)

	// users is whitelisted but has no embedding column: a capability
	// error, not a whitelist one.
	_, err = svc.VectorSearch(ctx, "users", []float32{1, 0, 0}, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrTableCapability)
	assert.NotErrorIs(t, err, domain.ErrInvalidTable)

	_, err = svc.VectorSearch(ctx, "attractions", nil, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidEmbedding)

	_, err = svc.VectorSearch(ctx, "attractions", []float32{1, 0}, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)

	_, err = svc.VectorSearch(ctx, "attractions", []float32{1, 0, 0}, map[string]any{"city_id; --": 1}, 10, 0)
	assert.ErrorIs(t, err, domain.ErrUnsafeColumn)

	_, err = svc.VectorSearch(ctx, "attractions", []float32{1, 0, 0}, nil, -1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)

	repo.AssertNotCalled(t, "VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVectorSearch_BackendFailureDegradesToEmpty(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	repo.On("VectorSearch", mock.Anything, "attractions", mock.Anything, mock.Anything, 10, 0).
		Return(nil, errors.New("connection refused"))

	results, err := svc.VectorSearch(context.Background(), "attractions", []float32{1, 0, 0}, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTextSearch_EmptyQueryWithoutFiltersIsEmpty(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	results, err := svc.TextSearch(context.Background(), "attractions", "   ", nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	repo.AssertNotCalled(t, "TextSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTextSearch_EmptyQueryWithFiltersUsesFind(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	filters := map[string]any{"city_id": 3}
	repo.On("Find", mock.Anything, "attractions", filters, 10, 0).
		Return([]*domain.Record{testRecord(1), testRecord(2)}, nil)

	results, err := svc.TextSearch(context.Background(), "attractions", "", filters, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Position-based fallback scoring is non-increasing.
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestTextSearch_ExactMatchOutscoresSubstring(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	exact := testRecord(1)
	exact.Data["name"] = map[string]any{"en": "Museum"}
	loose := testRecord(2)
	loose.Data["name"] = map[string]any{"en": "Museum of Modern Egyptian Art"}

	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 10, 0).
		Return([]*domain.Record{loose, exact}, nil)

	results, err := svc.TextSearch(context.Background(), "attractions", "museum", nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(1), results[0].Record.ID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Less(t, results[1].Score, 1.0)
	assert.Greater(t, results[1].Score, 0.0)
}

func TestTextSearch_BackendFailureDegradesToEmpty(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 10, 0).
		Return(nil, errors.New("timeout"))

	results, err := svc.TextSearch(context.Background(), "attractions", "museum", nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGeoSearch_ScoresByProximity(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	center := geoRecord(1, 30.0, 31.0)
	near := geoRecord(2, 30.01, 31.0) // ~1.1 km north
	outside := geoRecord(3, 31.0, 31.0)

	repo.On("GeoCandidates", mock.Anything, "attractions",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, maxGeoCandidates).
		Return([]*domain.Record{outside, near, center}, nil)

	results, err := svc.GeoSearch(context.Background(), "attractions", 30.0, 31.0, 10, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(1), results[0].Record.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	require.NotNil(t, results[0].DistanceKm)
	assert.InDelta(t, 0.0, *results[0].DistanceKm, 1e-9)

	assert.Equal(t, int64(2), results[1].Record.ID)
	assert.Greater(t, results[1].Score, 0.0)
	assert.Less(t, results[1].Score, 1.0)
}

func TestGeoSearch_CallerErrorsSurface(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.GeoSearch(ctx, "attractions", 91, 31, 10, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)

	_, err = svc.GeoSearch(ctx, "attractions", 30, 31, 0, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRadius)

	_, err = svc.GeoSearch(ctx, "attractions", 30, 31, -5, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRadius)

	// tourism_faqs is whitelisted but has no coordinates.
	_, err = svc.GeoSearch(ctx, "tourism_faqs", 30, 31, 10, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrTableCapability)
	assert.NotErrorIs(t, err, domain.ErrInvalidTable)
}

func TestGeoSearch_BoundaryScoreIsZero(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	center := 30.0
	// ~10.01 km north of center with a 10.2 km radius: inside, near-zero score.
	edge := geoRecord(1, 30.09, 31.0)

	repo.On("GeoCandidates", mock.Anything, "attractions",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, maxGeoCandidates).
		Return([]*domain.Record{edge}, nil)

	results, err := svc.GeoSearch(context.Background(), "attractions", center, 31.0, 10.2, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.GreaterOrEqual(t, results[0].Score, 0.0)
	assert.Less(t, results[0].Score, 0.1)
}

func TestGeoSearch_OffsetAndLimit(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	candidates := []*domain.Record{
		geoRecord(1, 30.0, 31.0),
		geoRecord(2, 30.01, 31.0),
		geoRecord(3, 30.02, 31.0),
	}
	repo.On("GeoCandidates", mock.Anything, "attractions",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, maxGeoCandidates).
		Return(candidates, nil)

	results, err := svc.GeoSearch(context.Background(), "attractions", 30.0, 31.0, 50, nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Record.ID)

	results, err = svc.GeoSearch(context.Background(), "attractions", 30.0, 31.0, 50, nil, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridSearch_FusesWeightedScores(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	// Record 1 hits vector only, record 2 hits both vector and text: the
	// two weaker signals together must outrank the single stronger one.
	rec1 := testRecord(1)
	rec2 := testRecord(2)
	rec2.Data["name"] = map[string]any{"en": "museum"}

	repo.On("VectorSearch", mock.Anything, "attractions", []float32{1, 0, 0}, mock.Anything, 20, 0).
		Return([]*VectorMatch{
			{Record: rec1, Distance: 0.1}, // vector score 0.9
			{Record: rec2, Distance: 0.4}, // vector score 0.6
		}, nil)
	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 20, 0).
		Return([]*domain.Record{rec2}, nil) // text score 1.0 (exact)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		TextQuery: "museum",
		Embedding: []float32{1, 0, 0},
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// rec2: 0.6*0.4 + 1.0*0.4 = 0.64; rec1: 0.9*0.4 = 0.36.
	assert.Equal(t, int64(2), results[0].Record.ID)
	assert.InDelta(t, 0.64, results[0].Score, 1e-9)
	assert.Equal(t, int64(1), results[1].Record.ID)
	assert.InDelta(t, 0.36, results[1].Score, 1e-9)
	assert.Equal(t, SearchTypeHybrid, results[0].SearchType)
}

func TestHybridSearch_TieBreaksByAscendingID(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	repo.On("VectorSearch", mock.Anything, "attractions", mock.Anything, mock.Anything, 20, 0).
		Return([]*VectorMatch{
			{Record: testRecord(9), Distance: 0.5},
			{Record: testRecord(3), Distance: 0.5},
		}, nil)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(3), results[0].Record.ID)
	assert.Equal(t, int64(9), results[1].Record.ID)
}

func TestHybridSearch_GeoContributesDistance(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	rec := geoRecord(1, 30.0, 31.0)
	rec.Data["name"] = map[string]any{"en": "bazaar"}

	repo.On("TextSearch", mock.Anything, "attractions", "bazaar", mock.Anything, 20, 0).
		Return([]*domain.Record{rec}, nil)
	repo.On("GeoCandidates", mock.Anything, "attractions",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, maxGeoCandidates).
		Return([]*domain.Record{rec}, nil)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		TextQuery: "bazaar",
		Location:  &GeoPoint{Latitude: 30.0, Longitude: 31.0},
		RadiusKm:  5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// text 1.0*0.4 + geo 1.0*0.2
	assert.InDelta(t, 0.6, results[0].Score, 1e-9)
	require.NotNil(t, results[0].DistanceKm)
	assert.InDelta(t, 0.0, *results[0].DistanceKm, 1e-9)
}

func TestHybridSearch_NoDimensionsIsEmpty(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{Table: "attractions"})
	require.NoError(t, err)
	assert.Empty(t, results)
	repo.AssertExpectations(t)
}

func TestHybridSearch_CallerErrors(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.HybridSearch(ctx, SearchFilter{Table: "nonexistent", TextQuery: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidTable)

	_, err = svc.HybridSearch(ctx, SearchFilter{
		Table:     "attractions",
		TextQuery: "x",
		Filters:   map[string]any{"drop table": 1},
	})
	assert.ErrorIs(t, err, domain.ErrUnsafeColumn)

	_, err = svc.HybridSearch(ctx, SearchFilter{Table: "attractions", TextQuery: "x", Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)

	_, err = svc.HybridSearch(ctx, SearchFilter{Table: "attractions", Embedding: []float32{1}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)

	_, err = svc.HybridSearch(ctx, SearchFilter{
		Table:    "attractions",
		Location: &GeoPoint{Latitude: 30, Longitude: 31},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRadius)

	// An embedding the caller supplied for a table without the column is
	// misuse and must surface, unlike a generated one.
	_, err = svc.HybridSearch(ctx, SearchFilter{Table: "users", Embedding: []float32{1, 0, 0}})
	assert.ErrorIs(t, err, domain.ErrTableCapability)
}

func TestHybridSearch_PartialFailureDegrades(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	rec := testRecord(1)
	rec.Data["name"] = map[string]any{"en": "museum"}

	repo.On("VectorSearch", mock.Anything, "attractions", mock.Anything, mock.Anything, 20, 0).
		Return(nil, errors.New("connection refused"))
	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 20, 0).
		Return([]*domain.Record{rec}, nil)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		TextQuery: "museum",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.4, results[0].Score, 1e-9)
}

func TestHybridSearch_AllSearchersFailing(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	repo.On("VectorSearch", mock.Anything, "attractions", mock.Anything, mock.Anything, 20, 0).
		Return(nil, errors.New("down"))
	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 20, 0).
		Return(nil, errors.New("down"))

	_, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		TextQuery: "museum",
		Embedding: []float32{1, 0, 0},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
}

func TestHybridSearch_TruncatesToLimit(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)

	matches := make([]*VectorMatch, 4)
	for i := range matches {
		matches[i] = &VectorMatch{Record: testRecord(int64(i + 1)), Distance: float64(i) * 0.1}
	}
	// Each searcher over-fetches twice the requested limit.
	repo.On("VectorSearch", mock.Anything, "attractions", mock.Anything, mock.Anything, 4, 0).
		Return(matches, nil)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		Embedding: []float32{1, 0, 0},
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Record.ID)
	assert.Equal(t, int64(2), results[1].Record.ID)
}

func TestHybridSearch_GeneratesQueryEmbedding(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	embedder := new(MockEmbeddingClient)
	svc.SetEmbedder(embedder)

	rec := testRecord(1)
	rec.Data["name"] = map[string]any{"en": "museum"}

	embedder.On("GenerateEmbedding", mock.Anything, "museum").Return([]float32{1, 0, 0}, nil)
	repo.On("VectorSearch", mock.Anything, "attractions", []float32{1, 0, 0}, mock.Anything, 20, 0).
		Return([]*VectorMatch{{Record: rec, Distance: 0}}, nil)
	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 20, 0).
		Return([]*domain.Record{rec}, nil)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		TextQuery: "museum",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	// Both the generated vector dimension and the text dimension contribute.
	assert.InDelta(t, 0.8, results[0].Score, 1e-9)
	embedder.AssertExpectations(t)
}

func TestHybridSearch_EmbedderFailureDegradesToText(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	embedder := new(MockEmbeddingClient)
	svc.SetEmbedder(embedder)

	rec := testRecord(1)
	rec.Data["name"] = map[string]any{"en": "museum"}

	embedder.On("GenerateEmbedding", mock.Anything, "museum").Return(nil, errors.New("rate limited"))
	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 20, 0).
		Return([]*domain.Record{rec}, nil)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		TextQuery: "museum",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.4, results[0].Score, 1e-9)
	repo.AssertNotCalled(t, "VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHybridSearch_NoEmbeddingColumnSkipsGeneratedVector(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	embedder := new(MockEmbeddingClient)
	svc.SetEmbedder(embedder)

	rec := &domain.Record{
		ID:    1,
		Table: "users",
		Data:  map[string]any{"id": int64(1), "username": "alice"},
	}

	repo.On("TextSearch", mock.Anything, "users", "alice", mock.Anything, 20, 0).
		Return([]*domain.Record{rec}, nil)

	// users has no embedding column, so a bare text query must rank on the
	// text dimension alone rather than fail on a vector dimension the
	// caller never asked for.
	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "users",
		TextQuery: "alice",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.4, results[0].Score, 1e-9)

	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// stubCache is a minimal in-memory ResultCache for service-level tests.
type stubCache struct {
	entries map[string][]*SearchResult
	sets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string][]*SearchResult)}
}

func (c *stubCache) key(filter SearchFilter) string {
	return filter.Table + "|" + filter.TextQuery
}

func (c *stubCache) Get(ctx context.Context, filter SearchFilter) ([]*SearchResult, bool) {
	results, ok := c.entries[c.key(filter)]
	return results, ok
}

func (c *stubCache) Set(ctx context.Context, filter SearchFilter, results []*SearchResult) {
	c.entries[c.key(filter)] = results
	c.sets++
}

func TestHybridSearch_CacheHitSkipsSearchers(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	cache := newStubCache()
	svc.SetResultCache(cache)

	rec := testRecord(1)
	rec.Data["name"] = map[string]any{"en": "museum"}
	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 20, 0).
		Return([]*domain.Record{rec}, nil).Once()

	filter := SearchFilter{Table: "attractions", TextQuery: "museum"}

	first, err := svc.HybridSearch(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.HybridSearch(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertExpectations(t)
}

func TestHybridSearch_DegradedResultsNotCached(t *testing.T) {
	repo := new(MockSearchRepository)
	svc := newTestService(repo)
	cache := newStubCache()
	svc.SetResultCache(cache)

	rec := testRecord(1)
	rec.Data["name"] = map[string]any{"en": "museum"}

	repo.On("VectorSearch", mock.Anything, "attractions", mock.Anything, mock.Anything, 20, 0).
		Return(nil, errors.New("down"))
	repo.On("TextSearch", mock.Anything, "attractions", "museum", mock.Anything, 20, 0).
		Return([]*domain.Record{rec}, nil)

	results, err := svc.HybridSearch(context.Background(), SearchFilter{
		Table:     "attractions",
		TextQuery: "museum",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, cache.sets)
}

// MockRecordRepo is a mock implementation of RecordRepositoryInterface
type MockRecordRepo struct {
	mock.Mock
}

func (m *MockRecordRepo) FindByID(ctx context.Context, table string, id int64) (*domain.Record, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRecordRepo) Find(ctx context.Context, table string, filters map[string]any, limit, offset int) ([]*domain.Record, error) {
	args := m.Called(ctx, table, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Record), args.Error(1)
}

func (m *MockRecordRepo) ListWithCursor(ctx context.Context, table string, cursor *pagination.Cursor, limit int) (*pagination.Page[*domain.Record], error) {
	args := m.Called(ctx, table, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Page[*domain.Record]), args.Error(1)
}

// MockMediaStorage is a mock implementation of MediaStorage
type MockMediaStorage struct {
	mock.Mock
}

func (m *MockMediaStorage) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, expires)
	return args.String(0), args.Error(1)
}

func TestRecordService_Tables(t *testing.T) {
	svc := NewRecordService(new(MockRecordRepo), nil)

	tables := svc.Tables()
	assert.Contains(t, tables, "attractions")
	assert.Contains(t, tables, "itineraries")
	assert.Len(t, tables, 13)
	assert.IsIncreasing(t, tables)
}

func TestRecordService_GetByID_UnknownTable(t *testing.T) {
	svc := NewRecordService(new(MockRecordRepo), nil)

	_, err := svc.GetByID(context.Background(), "secrets", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTable)
}

func TestRecordService_List_InvalidCursor(t *testing.T) {
	svc := NewRecordService(new(MockRecordRepo), nil)

	_, err := svc.List(context.Background(), "attractions", "not-base64!!!", 10)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestRecordService_MediaURL(t *testing.T) {
	repo := new(MockRecordRepo)
	media := new(MockMediaStorage)
	svc := NewRecordService(repo, media)

	rec := testRecord(1)
	rec.Data["media_key"] = "attractions/1/cover.jpg"
	repo.On("FindByID", mock.Anything, "attractions", int64(1)).Return(rec, nil)
	media.On("PresignDownload", mock.Anything, "attractions/1/cover.jpg", time.Hour).
		Return("https://media.example/signed", nil)

	url, err := svc.MediaURL(context.Background(), "attractions", 1, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/signed", url)
}

func TestRecordService_MediaURL_NoMedia(t *testing.T) {
	repo := new(MockRecordRepo)
	media := new(MockMediaStorage)
	svc := NewRecordService(repo, media)
	ctx := context.Background()

	// Table without a media column.
	_, err := svc.MediaURL(ctx, "cities", 1, time.Hour)
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)

	// Record without a media key.
	repo.On("FindByID", mock.Anything, "attractions", int64(2)).Return(testRecord(2), nil)
	_, err = svc.MediaURL(ctx, "attractions", 2, time.Hour)
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)

	// No storage configured.
	bare := NewRecordService(repo, nil)
	_, err = bare.MediaURL(ctx, "attractions", 2, time.Hour)
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)
}
