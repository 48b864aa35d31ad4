package jobs

import (
	"context"
	"fmt"
	"log"
)

const (
	// DefaultBatchSize is the number of records embedded per table per poll.
	DefaultBatchSize = 50
)

// EmbeddingBackfiller defines the interface for filling in missing record
// embeddings.
type EmbeddingBackfiller interface {
	BackfillAll(ctx context.Context, batch int) (int, error)
}

// EmbeddingWorker periodically embeds records that have no embedding yet.
type EmbeddingWorker struct {
	backfiller EmbeddingBackfiller
	batchSize  int
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(backfiller EmbeddingBackfiller) *EmbeddingWorker {
	return &EmbeddingWorker{
		backfiller: backfiller,
		batchSize:  DefaultBatchSize,
	}
}

// RunOnce embeds one batch of records per table. Partial progress before a
// client error still counts toward the log line.
func (w *EmbeddingWorker) RunOnce(ctx context.Context) error {
	embedded, err := w.backfiller.BackfillAll(ctx, w.batchSize)
	if embedded > 0 {
		log.Printf("embedded %d records", embedded)
	}
	if err != nil {
		return fmt.Errorf("embedding backfill: %w", err)
	}
	return nil
}
