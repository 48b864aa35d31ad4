package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cairoware/tourbase/internal/api"
	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/pagination"
)

const defaultMediaURLExpiry = 1 * time.Hour

type RecordService interface {
	GetByID(ctx context.Context, table string, id int64) (*domain.Record, error)
	List(ctx context.Context, table string, cursor string, limit int) (*pagination.Page[*domain.Record], error)
	Tables() []string
	MediaURL(ctx context.Context, table string, id int64, expires time.Duration) (string, error)
}

type RecordHandler struct {
	svc RecordService
}

func NewRecordHandler(svc RecordService) *RecordHandler {
	return &RecordHandler{svc: svc}
}

type RecordListResponse struct {
	Items   []*RecordResponse `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

type TablesResponse struct {
	Tables []string `json:"tables"`
}

type MediaURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	record, err := h.svc.GetByID(r.Context(), table, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, recordToResponse(record))
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	cursor := r.URL.Query().Get("cursor")
	limit := parseIntParam(r.URL.Query().Get("limit"), 20)

	page, err := h.svc.List(r.Context(), table, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*RecordResponse, len(page.Items))
	for i, rec := range page.Items {
		items[i] = recordToResponse(rec)
	}

	api.Success(w, http.StatusOK, RecordListResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *RecordHandler) Tables(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, TablesResponse{Tables: h.svc.Tables()})
}

func (h *RecordHandler) Media(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	url, err := h.svc.MediaURL(r.Context(), table, id, defaultMediaURLExpiry)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, MediaURLResponse{
		URL:       url,
		ExpiresIn: int(defaultMediaURLExpiry.Seconds()),
	})
}

func parseRecordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}
