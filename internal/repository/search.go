package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SearchRepository implements the store side of the search service: nearest
// neighbors over pgvector, ILIKE matching over the searchable fields, and
// bounding-box candidate selection for the geo searcher.
type SearchRepository struct {
	pool *pgxpool.Pool
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

// VectorSearch returns records nearest to the query embedding by cosine
// distance, excluding rows without an embedding.
func (r *SearchRepository) VectorSearch(ctx context.Context, table string, embedding []float32, filters map[string]any, limit, offset int) ([]*service.VectorMatch, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}

	args := []any{pgvector.NewVector(embedding)}
	query := `SELECT *, embedding <=> $1 AS distance FROM ` + spec.Name + ` WHERE embedding IS NOT NULL`

	clause, args, err := buildFilterClause(filters, args)
	if err != nil {
		return nil, err
	}
	query += clause

	args = append(args, limit)
	query += ` ORDER BY embedding <=> $1 ASC, id ASC LIMIT $` + strconv.Itoa(len(args))
	if offset > 0 {
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*service.VectorMatch
	fields := rows.FieldDescriptions()
	distanceIdx := -1
	for i, fd := range fields {
		if fd.Name == "distance" {
			distanceIdx = i
		}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := scanRecord(spec.Name, spec, fields, values)
		distance := 0.0
		if distanceIdx >= 0 {
			if d, ok := toFloat64(values[distanceIdx]); ok {
				distance = d
			}
		}
		matches = append(matches, &service.VectorMatch{Record: rec, Distance: distance})
	}
	return matches, rows.Err()
}

// TextSearch returns records where any searchable field contains the query
// substring, case-insensitively, in any supported language.
func (r *SearchRepository) TextSearch(ctx context.Context, table, query string, filters map[string]any, limit, offset int) ([]*domain.Record, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}

	conditions := textConditions(spec, "$1")
	if len(conditions) == 0 {
		return []*domain.Record{}, nil
	}

	args := []any{"%" + escapeLike(query) + "%"}
	sql := `SELECT * FROM ` + spec.Name + ` WHERE (` + strings.Join(conditions, " OR ") + `)`

	clause, args, err := buildFilterClause(filters, args)
	if err != nil {
		return nil, err
	}
	sql += clause

	args = append(args, limit)
	sql += ` ORDER BY id ASC LIMIT $` + strconv.Itoa(len(args))
	if offset > 0 {
		args = append(args, offset)
		sql += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows, spec.Name, spec)
}

// Find returns records matching only the exact-match filters.
func (r *SearchRepository) Find(ctx context.Context, table string, filters map[string]any, limit, offset int) ([]*domain.Record, error) {
	return NewRecordRepository(r.pool).Find(ctx, table, filters, limit, offset)
}

// GeoCandidates selects rows with coordinates inside the bounding box. The
// exact radius membership is decided by the caller's haversine check.
func (r *SearchRepository) GeoCandidates(ctx context.Context, table string, minLat, maxLat, minLon, maxLon float64, filters map[string]any, limit int) ([]*domain.Record, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}

	args := []any{minLat, maxLat, minLon, maxLon}
	query := `SELECT * FROM ` + spec.Name + `
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4`

	clause, args, err := buildFilterClause(filters, args)
	if err != nil {
		return nil, err
	}
	query += clause

	args = append(args, limit)
	query += ` ORDER BY id ASC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows, spec.Name, spec)
}

// textConditions renders the ILIKE condition list for a table: every
// supported language of each localized field plus the plain text fields.
func textConditions(spec domain.TableSpec, param string) []string {
	var conditions []string
	for _, field := range spec.LocalizedFields {
		for _, lang := range domain.SupportedLanguages {
			conditions = append(conditions, field+`->>'`+lang+`' ILIKE `+param)
		}
	}
	for _, field := range spec.TextFields {
		conditions = append(conditions, field+` ILIKE `+param)
	}
	return conditions
}

// escapeLike neutralizes LIKE metacharacters in user input so a query
// string is always matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
