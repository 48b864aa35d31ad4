package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/cairoware/tourbase/internal/api/handlers"
	"github.com/cairoware/tourbase/internal/cache"
	"github.com/cairoware/tourbase/internal/config"
	"github.com/cairoware/tourbase/internal/database"
	"github.com/cairoware/tourbase/internal/jobs"
	"github.com/cairoware/tourbase/internal/openai"
	"github.com/cairoware/tourbase/internal/repository"
	"github.com/cairoware/tourbase/internal/server"
	"github.com/cairoware/tourbase/internal/service"
	"github.com/cairoware/tourbase/internal/storage"
	"github.com/cairoware/tourbase/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the tourbase API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	searchRepo := repository.NewSearchRepository(pool)
	recordRepo := repository.NewRecordRepository(pool)

	searchSvc := service.NewSearchServiceWithConfig(searchRepo, service.SearchServiceConfig{
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		SearcherTimeout:     time.Duration(cfg.SearcherTimeoutMS) * time.Millisecond,
	})

	if cfg.HasRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("redis ping failed (continuing without cache): %v", err)
		} else {
			defer redisClient.Close()
			ttl := time.Duration(cfg.CacheTTLSecs) * time.Second
			searchSvc.SetResultCache(cache.NewSearchCache(redisClient, ttl))
			log.Printf("search cache enabled (ttl %s)", ttl)
		}
	}

	var mediaClient *storage.MediaClient
	if cfg.HasS3() {
		mediaClient, err = storage.NewMediaClient(ctx, storage.MediaClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create media storage client: %w", err)
		}
		if err := mediaClient.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure media bucket: %w", err)
		}
		log.Printf("media bucket '%s' ready", cfg.S3Bucket)
	}

	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingClient := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		searchSvc.SetEmbedder(embeddingClient)

		embeddingSvc := service.NewEmbeddingService(embeddingClient, recordRepo)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, 30*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding backfill worker started")
	}

	recordSvc := service.NewRecordService(recordRepo, mediaStorageOrNil(mediaClient))

	routerCfg := server.RouterConfig{
		APIKeys:       cfg.APIKeyList(),
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		RecordHandler: handlers.NewRecordHandler(recordSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// mediaStorageOrNil keeps the service's nil check meaningful; a typed nil
// pointer inside the interface would defeat it.
func mediaStorageOrNil(client *storage.MediaClient) service.MediaStorage {
	if client == nil {
		return nil
	}
	return client
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
