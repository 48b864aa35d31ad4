package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/cairoware/tourbase/internal/config"
	"github.com/cairoware/tourbase/internal/database"
	"github.com/cairoware/tourbase/internal/openai"
	"github.com/cairoware/tourbase/internal/repository"
	"github.com/cairoware/tourbase/internal/service"
)

// BackfillCmd returns the backfill command
func BackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill [table]",
		Short: "Generate missing record embeddings",
		Long:  "Generate embeddings for records that do not have one yet, for one table or all embedding-capable tables",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBackfill,
	}

	cmd.Flags().Int("batch", 50, "Records to embed per batch")

	return cmd
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("backfill requires TOURBASE_OPENAI_API_KEY")
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	recordRepo := repository.NewRecordRepository(pool)
	embeddingSvc := service.NewEmbeddingService(embeddingClient, recordRepo)

	batch, _ := cmd.Flags().GetInt("batch")

	var embedded int
	if len(args) == 1 {
		embedded, err = embeddingSvc.BackfillTable(ctx, args[0], batch)
	} else {
		embedded, err = embeddingSvc.BackfillAll(ctx, batch)
	}
	if err != nil {
		return fmt.Errorf("backfill failed after %d records: %w", embedded, err)
	}

	if len(args) == 1 {
		total, countErr := recordRepo.Count(ctx, args[0])
		if countErr != nil {
			log.Printf("backfill complete: embedded %d records", embedded)
			return nil
		}
		log.Printf("backfill complete: embedded %d of %d %s records", embedded, total, args[0])
		return nil
	}

	log.Printf("backfill complete: embedded %d records", embedded)
	return nil
}
