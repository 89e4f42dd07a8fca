package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"recallai/internal/api"
	"recallai/internal/cache"
	"recallai/internal/config"
	"recallai/internal/embedding"
	"recallai/internal/extract"
	"recallai/internal/history"
	"recallai/internal/llm"
	"recallai/internal/rag"
	"recallai/internal/store"
	"recallai/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log.Printf("starting recallai: %s", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("create upload dir: %v", err)
	}

	db, err := history.Open(cfg.HistoryDriver, cfg.HistoryDSN)
	if err != nil {
		log.Fatalf("open history database: %v", err)
	}
	defer db.Close()
	if err := history.Migrate(db, cfg.HistoryDriver); err != nil {
		log.Fatalf("migrate history database: %v", err)
	}
	askLog := history.NewLog(db)

	var answerCache *cache.Client
	if cfg.RedisAddr != "" {
		answerCache, err = cache.New(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer answerCache.Close()
	}

	extractor, err := extract.NewService(ctx)
	if err != nil {
		log.Fatalf("init extraction service: %v", err)
	}
	embedder, err := embedding.NewOpenAI(ctx, cfg)
	if err != nil {
		log.Fatalf("init embedding service: %v", err)
	}
	completer, err := llm.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init llm: %v", err)
	}

	sessions := store.New(cfg.MaxUploads, cfg.CleanupInterval, cfg.MaxMemoryPct)
	defer sessions.Close()
	sessions.StartSweeper(ctx, cfg.CleanupInterval)

	pool := worker.NewPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IngestQueueSize, cfg.WorkerIdleTimeout)
	defer pool.Stop()

	engine := rag.NewEngine(embedder, completer)
	handler := api.NewHandler(cfg, sessions, engine, extractor, embedder, pool, askLog, answerCache)

	router := gin.Default()
	handler.RegisterRoutes(router)

	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
