package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/cairoware/tourbase/internal/domain"
)

// EmbeddingRecordRepository defines the repository interface for embedding
// backfill operations.
type EmbeddingRecordRepository interface {
	ListMissingEmbeddings(ctx context.Context, table string, batch int) ([]*domain.Record, error)
	UpdateEmbedding(ctx context.Context, table string, id int64, embedding []float32) error
}

// EmbeddingService backfills record embeddings across the embedding-capable
// tables.
type EmbeddingService struct {
	client EmbeddingClient
	repo   EmbeddingRecordRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingRecordRepository) *EmbeddingService {
	return &EmbeddingService{client: client, repo: repo}
}

// BackfillTable embeds one batch of records missing an embedding in the
// given table. Returns the number of records embedded.
func (s *EmbeddingService) BackfillTable(ctx context.Context, table string, batch int) (int, error) {
	spec, err := domain.TableFor(table)
	if err != nil {
		return 0, err
	}
	if !spec.HasEmbedding {
		return 0, nil
	}

	records, err := s.repo.ListMissingEmbeddings(ctx, table, batch)
	if err != nil {
		return 0, err
	}

	embedded := 0
	for _, rec := range records {
		text := rec.SearchableText(spec)
		if text == "" {
			log.Printf("embedding backfill: record %s/%d has no text to embed, skipping", table, rec.ID)
			continue
		}

		embedding, err := s.client.GenerateEmbedding(ctx, text)
		if err != nil {
			return embedded, fmt.Errorf("failed to generate embedding for %s/%d: %w", table, rec.ID, err)
		}

		if err := s.repo.UpdateEmbedding(ctx, table, rec.ID, embedding); err != nil {
			return embedded, fmt.Errorf("failed to store embedding for %s/%d: %w", table, rec.ID, err)
		}
		embedded++
	}

	return embedded, nil
}

// BackfillAll runs one backfill batch for every embedding-capable table.
func (s *EmbeddingService) BackfillAll(ctx context.Context, batch int) (int, error) {
	tables := domain.TableNames()
	sort.Strings(tables)

	total := 0
	for _, table := range tables {
		spec, err := domain.TableFor(table)
		if err != nil || !spec.HasEmbedding {
			continue
		}
		n, err := s.BackfillTable(ctx, table, batch)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
