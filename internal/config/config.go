package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config carries the runtime settings for the service. Every field has a
// default so the process starts with an empty environment; API keys for the
// LLM and embedding backends are the only settings without a usable default.
type Config struct {
	Addr            string
	UploadDir       string
	MaxUploads      int
	MaxFileSize     int64
	CleanupInterval time.Duration
	ChunkSize       int
	ChunkOverlap    int
	MaxChunks       int
	MaxMemoryPct    float64

	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMTimeout  time.Duration

	EmbedModel   string
	EmbedAPIKey  string
	EmbedBaseURL string
	EmbedDim     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HistoryDriver string
	HistoryDSN    string

	MinWorkers        int
	MaxWorkers        int
	IngestQueueSize   int
	WorkerIdleTimeout time.Duration
}

// FromEnv reads configuration from environment variables, falling back to
// defaults for anything unset. Invalid numeric values are logged and replaced
// with the default rather than aborting startup.
func FromEnv() *Config {
	cfg := &Config{
		Addr:            ":" + envString("PORT", "5000"),
		UploadDir:       envString("UPLOAD_DIR", os.TempDir()),
		MaxUploads:      envInt("MAX_UPLOADS", 3),
		MaxFileSize:     envInt64("MAX_FILE_SIZE", 5*1024*1024),
		CleanupInterval: envSeconds("CLEANUP_INTERVAL", 1800),
		ChunkSize:       envInt("CHUNK_SIZE", 400),
		ChunkOverlap:    envInt("CHUNK_OVERLAP", 40),
		MaxChunks:       envInt("MAX_CHUNKS", 30),
		MaxMemoryPct:    envFloat("MAX_MEMORY_PCT", 80.0),

		LLMProvider: envString("LLM_PROVIDER", "openai"),
		LLMModel:    envString("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMBaseURL:  os.Getenv("LLM_BASE_URL"),
		LLMTimeout:  envSeconds("LLM_TIMEOUT", 60),

		EmbedModel:   envString("EMBED_MODEL", "text-embedding-3-small"),
		EmbedAPIKey:  os.Getenv("EMBED_API_KEY"),
		EmbedBaseURL: os.Getenv("EMBED_BASE_URL"),
		EmbedDim:     envInt("EMBED_DIM", 1536),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		HistoryDriver: envString("HISTORY_DRIVER", "sqlite3"),
		HistoryDSN:    envString("HISTORY_DSN", "file:recall_history.db?_journal_mode=WAL"),

		MinWorkers:        envInt("MIN_WORKERS", 1),
		MaxWorkers:        envInt("MAX_WORKERS", 4),
		IngestQueueSize:   envInt("INGEST_QUEUE", 8),
		WorkerIdleTimeout: envSeconds("WORKER_IDLE_TIMEOUT", 30),
	}
	if cfg.EmbedAPIKey == "" {
		cfg.EmbedAPIKey = cfg.LLMAPIKey
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		log.Printf("config: CHUNK_OVERLAP %d >= CHUNK_SIZE %d, disabling overlap", cfg.ChunkOverlap, cfg.ChunkSize)
		cfg.ChunkOverlap = 0
	}
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}

func (c *Config) String() string {
	return fmt.Sprintf("addr=%s max_uploads=%d max_file_size=%d cleanup=%s chunks=%d/%d cap=%d provider=%s",
		c.Addr, c.MaxUploads, c.MaxFileSize, c.CleanupInterval, c.ChunkSize, c.ChunkOverlap, c.MaxChunks, c.LLMProvider)
}
