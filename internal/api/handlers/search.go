package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cairoware/tourbase/internal/api"
	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/service"
)

type SearchService interface {
	HybridSearch(ctx context.Context, filter service.SearchFilter) ([]*service.SearchResult, error)
	VectorSearch(ctx context.Context, table string, embedding []float32, filters map[string]any, limit, offset int) ([]*service.SearchResult, error)
	TextSearch(ctx context.Context, table, query string, filters map[string]any, limit, offset int) ([]*service.SearchResult, error)
	GeoSearch(ctx context.Context, table string, lat, lon, radiusKm float64, filters map[string]any, limit, offset int) ([]*service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type HybridSearchRequest struct {
	Table     string           `json:"table"`
	Query     string           `json:"query"`
	Embedding []float32        `json:"embedding"`
	Location  *LocationRequest `json:"location"`
	RadiusKm  float64          `json:"radius_km"`
	Filters   map[string]any   `json:"filters"`
	Limit     int              `json:"limit"`
}

type VectorSearchRequest struct {
	Table     string         `json:"table"`
	Embedding []float32      `json:"embedding"`
	Filters   map[string]any `json:"filters"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

type TextSearchRequest struct {
	Table   string         `json:"table"`
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

type RecordResponse struct {
	ID          int64             `json:"id"`
	Table       string            `json:"table"`
	Name        map[string]string `json:"name,omitempty"`
	Description map[string]string `json:"description,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	Data        map[string]any    `json:"data,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
}

type SearchResultResponse struct {
	Record     *RecordResponse `json:"record"`
	Score      float64         `json:"score"`
	SearchType string          `json:"search_type"`
	DistanceKm *float64        `json:"distance_km,omitempty"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
	Count   int                     `json:"count"`
}

func recordToResponse(rec *domain.Record) *RecordResponse {
	resp := &RecordResponse{
		ID:        rec.ID,
		Table:     rec.Table,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Data:      rec.Data,
	}
	if len(rec.Name) > 0 {
		resp.Name = rec.Name
	}
	if len(rec.Description) > 0 {
		resp.Description = rec.Description
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = rec.CreatedAt.Format("2006-01-02T15:04:05Z")
	}
	if !rec.UpdatedAt.IsZero() {
		resp.UpdatedAt = rec.UpdatedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func resultsToResponse(results []*service.SearchResult) SearchResponse {
	items := make([]*SearchResultResponse, len(results))
	for i, r := range results {
		items[i] = &SearchResultResponse{
			Record:     recordToResponse(r.Record),
			Score:      r.Score,
			SearchType: string(r.SearchType),
			DistanceKm: r.DistanceKm,
		}
	}
	return SearchResponse{Results: items, Count: len(items)}
}

func (h *SearchHandler) Hybrid(w http.ResponseWriter, r *http.Request) {
	var req HybridSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Table == "" {
		api.Error(w, http.StatusBadRequest, "table is required")
		return
	}

	filter := service.SearchFilter{
		Table:     req.Table,
		TextQuery: req.Query,
		Embedding: req.Embedding,
		RadiusKm:  req.RadiusKm,
		Filters:   req.Filters,
		Limit:     req.Limit,
	}
	if req.Location != nil {
		filter.Location = &service.GeoPoint{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
		}
	}

	results, err := h.svc.HybridSearch(r.Context(), filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}

func (h *SearchHandler) Vector(w http.ResponseWriter, r *http.Request) {
	var req VectorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Table == "" {
		api.Error(w, http.StatusBadRequest, "table is required")
		return
	}
	if len(req.Embedding) == 0 {
		api.Error(w, http.StatusBadRequest, "embedding is required")
		return
	}

	results, err := h.svc.VectorSearch(r.Context(), req.Table, req.Embedding, req.Filters, req.Limit, req.Offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}

func (h *SearchHandler) Text(w http.ResponseWriter, r *http.Request) {
	var req TextSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Table == "" {
		api.Error(w, http.StatusBadRequest, "table is required")
		return
	}

	results, err := h.svc.TextSearch(r.Context(), req.Table, req.Query, req.Filters, req.Limit, req.Offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}

func (h *SearchHandler) Geo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	table := q.Get("table")
	if table == "" {
		api.Error(w, http.StatusBadRequest, "table is required")
		return
	}

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "lat is required")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "lon is required")
		return
	}
	radiusKm, err := strconv.ParseFloat(q.Get("radius_km"), 64)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "radius_km is required")
		return
	}

	limit := parseIntParam(q.Get("limit"), 0)
	offset := parseIntParam(q.Get("offset"), 0)

	results, err := h.svc.GeoSearch(r.Context(), table, lat, lon, radiusKm, nil, limit, offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}

func parseIntParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
