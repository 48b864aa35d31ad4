package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/cairoware/tourbase/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// RecordRepository reads tourism records generically across the whitelisted
// tables. Table names are resolved through the domain registry and filter
// columns through the safe-identifier check before any interpolation, so no
// caller-supplied string ever reaches a query unvalidated.
type RecordRepository struct {
	db dbtx
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{db: pool}
}

func NewRecordRepositoryWithTx(tx pgx.Tx) *RecordRepository {
	return &RecordRepository{db: tx}
}

// buildFilterClause renders exact-match filters as ANDed conditions.
// Columns that fail the identifier check are rejected outright.
func buildFilterClause(filters map[string]any, args []any) (string, []any, error) {
	clause := ""
	for _, column := range sortedKeys(filters) {
		if !domain.ValidColumnName(column) {
			return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
				fmt.Sprintf("unsafe filter column %q", column), domain.ErrUnsafeColumn)
		}
		args = append(args, filters[column])
		clause += " AND " + column + " = $" + strconv.Itoa(len(args))
	}
	return clause, args, nil
}

// sortedKeys keeps generated SQL stable for identical filter maps.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *RecordRepository) FindByID(ctx context.Context, table string, id int64) (*domain.Record, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT * FROM `+spec.Name+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows, spec.Name, spec)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrRecordNotFound
	}
	return records[0], nil
}

// Find returns records matching the exact-match filters, newest first.
func (r *RecordRepository) Find(ctx context.Context, table string, filters map[string]any, limit, offset int) ([]*domain.Record, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}

	query := `SELECT * FROM ` + spec.Name + ` WHERE true`
	clause, args, err := buildFilterClause(filters, nil)
	if err != nil {
		return nil, err
	}
	query += clause

	args = append(args, limit)
	query += ` ORDER BY id ASC LIMIT $` + strconv.Itoa(len(args))
	if offset > 0 {
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows, spec.Name, spec)
}

// ListWithCursor pages through a table ordered by (updated_at, id)
// descending, the same keyset scheme the listing endpoints expose.
func (r *RecordRepository) ListWithCursor(ctx context.Context, table string, cursor *pagination.Cursor, limit int) (*pagination.Page[*domain.Record], error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT * FROM `+spec.Name+`
			 WHERE (updated_at, id) < ($1, $2)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT * FROM `+spec.Name+`
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows, spec.Name, spec)
	if err != nil {
		return nil, err
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}

	var nextCursor string
	if hasMore && len(records) > 0 {
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	return &pagination.Page[*domain.Record]{
		Items:   records,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}

// ListMissingEmbeddings returns records awaiting embedding backfill.
func (r *RecordRepository) ListMissingEmbeddings(ctx context.Context, table string, batch int) ([]*domain.Record, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return nil, err
	}
	if !spec.HasEmbedding {
		return []*domain.Record{}, nil
	}
	if batch <= 0 {
		batch = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT * FROM `+spec.Name+` WHERE embedding IS NULL ORDER BY id ASC LIMIT $1`,
		batch,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows, spec.Name, spec)
}

// UpdateEmbedding writes a freshly generated embedding back to a record.
func (r *RecordRepository) UpdateEmbedding(ctx context.Context, table string, id int64, embedding []float32) error {
	spec, err := domain.TableFor(table)
	if err != nil {
		return err
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE `+spec.Name+` SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Count returns the number of rows in a whitelisted table.
func (r *RecordRepository) Count(ctx context.Context, table string) (int64, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return 0, err
	}

	var count int64
	err = r.db.QueryRow(ctx, `SELECT count(*) FROM `+spec.Name).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
