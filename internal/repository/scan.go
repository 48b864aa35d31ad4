package repository

import (
	"context"
	"log"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the subset of pgxpool.Pool and pgx.Tx the repositories need.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanRecord builds a Record from a generically-selected row. Localized
// JSON fields are decoded into language maps; a malformed field is logged
// and carried through raw rather than aborting the whole result set.
func scanRecord(table string, spec domain.TableSpec, fields []pgconn.FieldDescription, values []any) *domain.Record {
	rec := &domain.Record{
		Table: table,
		Data:  make(map[string]any, len(fields)),
	}

	localized := make(map[string]bool, len(spec.LocalizedFields))
	for _, f := range spec.LocalizedFields {
		localized[f] = true
	}

	for i, fd := range fields {
		name := fd.Name
		value := values[i]
		switch name {
		case "id":
			rec.ID = toInt64(value)
			rec.Data[name] = rec.ID
			continue
		case "embedding", "distance":
			// Raw embeddings are never returned to callers; distance is
			// handled by the vector scan path.
			continue
		case "latitude":
			if f, ok := toFloat64(value); ok {
				rec.Latitude = &f
				rec.Data[name] = f
			}
			continue
		case "longitude":
			if f, ok := toFloat64(value); ok {
				rec.Longitude = &f
				rec.Data[name] = f
			}
			continue
		case "created_at":
			if t, ok := value.(time.Time); ok {
				rec.CreatedAt = t
				rec.Data[name] = t
			}
			continue
		case "updated_at":
			if t, ok := value.(time.Time); ok {
				rec.UpdatedAt = t
				rec.Data[name] = t
			}
			continue
		}

		if localized[name] {
			text, err := domain.DecodeLocalizedText(value)
			if err != nil {
				log.Printf("record %s/%d: malformed localized field %q: %v", table, rec.ID, name, err)
				rec.Data[name] = value
				continue
			}
			rec.Data[name] = text
			switch name {
			case "name":
				rec.Name = text
			case "description":
				rec.Description = text
			}
			continue
		}

		if value != nil {
			rec.Data[name] = value
		}
	}

	return rec
}

func scanRecords(rows pgx.Rows, table string, spec domain.TableSpec) ([]*domain.Record, error) {
	var records []*domain.Record
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		records = append(records, scanRecord(table, spec, fields, values))
	}
	return records, rows.Err()
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case nil:
		return 0, false
	default:
		return 0, false
	}
}
