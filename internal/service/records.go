package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/pagination"
	"github.com/cairoware/tourbase/internal/telemetry"
)

// RecordRepositoryInterface defines the store operations the record
// service needs.
type RecordRepositoryInterface interface {
	FindByID(ctx context.Context, table string, id int64) (*domain.Record, error)
	Find(ctx context.Context, table string, filters map[string]any, limit, offset int) ([]*domain.Record, error)
	ListWithCursor(ctx context.Context, table string, cursor *pagination.Cursor, limit int) (*pagination.Page[*domain.Record], error)
}

// MediaStorage issues presigned download URLs for record media objects.
type MediaStorage interface {
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
}

// RecordService exposes read access to the whitelisted record tables.
type RecordService struct {
	repo  RecordRepositoryInterface
	media MediaStorage
}

// NewRecordService creates a RecordService. media may be nil when no
// object storage is configured.
func NewRecordService(repo RecordRepositoryInterface, media MediaStorage) *RecordService {
	return &RecordService{repo: repo, media: media}
}

// GetByID fetches one record from a whitelisted table.
func (s *RecordService) GetByID(ctx context.Context, table string, id int64) (*domain.Record, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecordService.GetByID", telemetry.SpanAttributes{
		Table:    table,
		RecordID: strconv.FormatInt(id, 10),
	})
	defer span.End()

	if _, err := domain.TableFor(table); err != nil {
		span.SetError(err)
		return nil, err
	}
	return s.repo.FindByID(ctx, table, id)
}

// List pages through a table with an opaque keyset cursor.
func (s *RecordService) List(ctx context.Context, table string, cursor string, limit int) (*pagination.Page[*domain.Record], error) {
	ctx, span := telemetry.StartSpan(ctx, "RecordService.List", telemetry.SpanAttributes{Table: table})
	defer span.End()

	if _, err := domain.TableFor(table); err != nil {
		span.SetError(err)
		return nil, err
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.repo.ListWithCursor(ctx, table, decoded, limit)
}

// Tables returns the table whitelist, sorted for stable output.
func (s *RecordService) Tables() []string {
	names := domain.TableNames()
	sort.Strings(names)
	return names
}

// MediaURL returns a presigned download URL for the record's media object.
func (s *RecordService) MediaURL(ctx context.Context, table string, id int64, expires time.Duration) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecordService.MediaURL", telemetry.SpanAttributes{
		Table:    table,
		RecordID: strconv.FormatInt(id, 10),
	})
	defer span.End()

	spec, err := domain.TableFor(table)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	if !spec.HasMedia || s.media == nil {
		return "", domain.ErrMediaNotFound
	}

	rec, err := s.repo.FindByID(ctx, table, id)
	if err != nil {
		return "", err
	}
	key, _ := rec.Data["media_key"].(string)
	if key == "" {
		return "", domain.ErrMediaNotFound
	}
	return s.media.PresignDownload(ctx, key, expires)
}
