package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"notebase/features/entity"
	"notebase/features/retryqueue"
	"notebase/features/search"
	"notebase/features/stats"
	"notebase/internal/chunk"
	"notebase/internal/config"
	"notebase/internal/ingest"
	"notebase/internal/middleware"
	"notebase/internal/retrieval"
)

// VectorStore is the slice of the Weaviate adapter the application wires
// into indexing, retrieval and stats.
type VectorStore interface {
	Upsert(ctx context.Context, c chunk.Chunk, vector []float32) error
	DeleteByIDs(ctx context.Context, chunkIDs []string) error
	ChunkIDsByEntity(ctx context.Context, entityID string) ([]string, error)
	SearchBM25(ctx context.Context, query string, limit int, f retrieval.Filter) ([]retrieval.Hit, error)
	SearchVector(ctx context.Context, vector []float32, limit int, f retrieval.Filter) ([]retrieval.Hit, error)
	CountChunks(ctx context.Context) (int, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type App struct {
	Handler http.Handler
	Sweeper *ingest.Sweeper

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	embedder Embedder,
) (*App, error) {

	// Feature: Retry Queue
	queueRepo := retryqueue.NewPostgresRepo(db)
	queueService := retryqueue.NewService(queueRepo)
	queueHandler := retryqueue.NewHandler(queueService)

	// Indexing pipeline
	orchestrator := ingest.NewOrchestrator(
		embedder,
		vecStore,
		queueRepo,
		cfg.RetryMaxAttempts,
		time.Duration(cfg.EmbedTimeoutSeconds)*time.Second,
	)

	// Feature: Entity
	entityRepo := entity.NewPostgresRepo(db)
	entityService := entity.NewService(entityRepo, orchestrator)
	entityHandler := entity.NewHandler(entityService)

	// Feature: Search
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, vecStore, queryLogger)
	searchHandler := search.NewHandler(retrievalService)

	// Feature: Stats
	statsHandler := stats.NewHandler(entityRepo, queueService, vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /entities", middleware.CorrelationID(enableCORS(entityHandler.Create)))
	mux.Handle("GET /entities", middleware.CorrelationID(enableCORS(entityHandler.List)))
	mux.Handle("GET /entities/{id}", middleware.CorrelationID(enableCORS(entityHandler.Get)))
	mux.Handle("PUT /entities/{id}", middleware.CorrelationID(enableCORS(entityHandler.Update)))
	mux.Handle("DELETE /entities/{id}", middleware.CorrelationID(enableCORS(entityHandler.Delete)))

	mux.Handle("GET /search", middleware.CorrelationID(enableCORS(searchHandler.Search)))

	mux.Handle("GET /admin/embedding-failures", middleware.CorrelationID(enableCORS(queueHandler.List)))
	mux.Handle("POST /admin/embedding-failures/{id}/retry", middleware.CorrelationID(enableCORS(queueHandler.Retry)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	sweeper := ingest.NewSweeper(
		queueRepo,
		orchestrator,
		entityService,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second,
		cfg.SweepBatchSize,
		cfg.SweepConcurrency,
	)

	return &App{
		Handler: mux,
		Sweeper: sweeper,
		port:    cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.Sweeper.Run(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
