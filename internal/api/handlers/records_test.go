package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/pagination"
)

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) GetByID(ctx context.Context, table string, id int64) (*domain.Record, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRecordService) List(ctx context.Context, table string, cursor string, limit int) (*pagination.Page[*domain.Record], error) {
	args := m.Called(ctx, table, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Page[*domain.Record]), args.Error(1)
}

func (m *MockRecordService) Tables() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockRecordService) MediaURL(ctx context.Context, table string, id int64, expires time.Duration) (string, error) {
	args := m.Called(ctx, table, id, expires)
	return args.String(0), args.Error(1)
}

// newRecordRequest builds a request with chi URL params set, the way the
// router would.
func newRecordRequest(method, target, table, id string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("table", table)
	if id != "" {
		rctx.URLParams.Add("id", id)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRecordHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	lat, lon := 25.6872, 32.6396
	expected := &domain.Record{
		ID:          12,
		Table:       "attractions",
		Name:        domain.LocalizedText{"en": "Luxor Temple", "ar": "معبد الأقصر"},
		Description: domain.LocalizedText{"en": "Ancient temple complex"},
		Latitude:    &lat,
		Longitude:   &lon,
		Data:        map[string]any{"entry_fee": 160},
	}
	mockSvc.On("GetByID", mock.Anything, "attractions", int64(12)).Return(expected, nil)

	req := newRecordRequest(http.MethodGet, "/records/attractions/12", "attractions", "12")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data RecordResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, int64(12), envelope.Data.ID)
	assert.Equal(t, "Luxor Temple", envelope.Data.Name["en"])
	assert.Equal(t, "معبد الأقصر", envelope.Data.Name["ar"])
	require.NotNil(t, envelope.Data.Latitude)
	assert.InDelta(t, 25.6872, *envelope.Data.Latitude, 1e-9)
	mockSvc.AssertExpectations(t)
}

func TestRecordHandler_Get_InvalidID(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	req := newRecordRequest(http.MethodGet, "/records/attractions/abc", "attractions", "abc")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid record id")
}

func TestRecordHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "attractions", int64(999)).Return(nil, domain.ErrRecordNotFound)

	req := newRecordRequest(http.MethodGet, "/records/attractions/999", "attractions", "999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRecordHandler_List_Success(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	page := &pagination.Page[*domain.Record]{
		Items: []*domain.Record{
			{ID: 1, Table: "cities", Name: domain.LocalizedText{"en": "Cairo"}},
			{ID: 2, Table: "cities", Name: domain.LocalizedText{"en": "Luxor"}},
		},
		Cursor:  "next-cursor",
		HasMore: true,
	}
	mockSvc.On("List", mock.Anything, "cities", "", 20).Return(page, nil)

	req := newRecordRequest(http.MethodGet, "/records/cities", "cities", "")
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data RecordListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Items, 2)
	assert.Equal(t, "next-cursor", envelope.Data.Cursor)
	assert.True(t, envelope.Data.HasMore)
	mockSvc.AssertExpectations(t)
}

func TestRecordHandler_List_CursorAndLimitForwarded(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	page := &pagination.Page[*domain.Record]{Items: []*domain.Record{}}
	mockSvc.On("List", mock.Anything, "cities", "abc123", 5).Return(page, nil)

	req := newRecordRequest(http.MethodGet, "/records/cities?cursor=abc123&limit=5", "cities", "")
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRecordHandler_Tables(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	mockSvc.On("Tables").Return([]string{"attractions", "cities", "restaurants"})

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	w := httptest.NewRecorder()

	handler.Tables(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data TablesResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"attractions", "cities", "restaurants"}, envelope.Data.Tables)
	mockSvc.AssertExpectations(t)
}

func TestRecordHandler_Media_Success(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	mockSvc.On("MediaURL", mock.Anything, "attractions", int64(12), defaultMediaURLExpiry).
		Return("https://media.example.com/signed-url", nil)

	req := newRecordRequest(http.MethodGet, "/records/attractions/12/media", "attractions", "12")
	w := httptest.NewRecorder()

	handler.Media(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data MediaURLResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "https://media.example.com/signed-url", envelope.Data.URL)
	assert.Equal(t, 3600, envelope.Data.ExpiresIn)
	mockSvc.AssertExpectations(t)
}

func TestRecordHandler_Media_NotFound(t *testing.T) {
	mockSvc := new(MockRecordService)
	handler := NewRecordHandler(mockSvc)

	mockSvc.On("MediaURL", mock.Anything, "cities", int64(3), defaultMediaURLExpiry).
		Return("", domain.ErrMediaNotFound)

	req := newRecordRequest(http.MethodGet, "/records/cities/3/media", "cities", "3")
	w := httptest.NewRecorder()

	handler.Media(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}
