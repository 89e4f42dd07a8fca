package api

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recallai/internal/cache"
	"recallai/internal/config"
	embwrap "recallai/internal/embedding"
	"recallai/internal/extract"
	"recallai/internal/history"
	"recallai/internal/llm"
	"recallai/internal/models"
	"recallai/internal/rag"
	"recallai/internal/store"
	"recallai/internal/worker"
)

// Handler wires HTTP routes to the session store and the query engine.
type Handler struct {
	cfg       *config.Config
	store     *store.Store
	engine    *rag.Engine
	extractor *extract.Service
	embedder  embedding.Embedder
	pool      *worker.Pool
	history   *history.Log
	cache     *cache.Client
}

// NewHandler constructs a Handler instance. cacheClient may be nil when no
// redis is configured.
func NewHandler(cfg *config.Config, sessions *store.Store, engine *rag.Engine, extractor *extract.Service,
	embedder embedding.Embedder, pool *worker.Pool, askLog *history.Log, cacheClient *cache.Client) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     sessions,
		engine:    engine,
		extractor: extractor,
		embedder:  embedder,
		pool:      pool,
		history:   askLog,
		cache:     cacheClient,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)
	router.POST("/upload/file", h.uploadFile)
	router.POST("/upload/youtube", h.uploadYouTube)
	router.POST("/ask", h.ask)
	router.GET("/history/:upload_no", h.historyList)
}

func (h *Handler) health(c *gin.Context) {
	pct, err := h.store.MemoryPercent()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":               "healthy",
		"memory_usage_percent": math.Round(pct*100) / 100,
		"active_uploads":       h.store.Len(),
	})
}

func (h *Handler) uploadFile(c *gin.Context) {
	if err := h.store.CheckAdmission(); err != nil {
		h.abortWith(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > h.cfg.MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !extract.Supported(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	dest := filepath.Join(h.cfg.UploadDir, uuid.NewString()+"_"+filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save file failed"})
		return
	}

	uploadNo, err := h.ingest(c.Request.Context(), dest, func(ctx context.Context) (string, error) {
		return h.extractor.FromFile(ctx, dest)
	})
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("upload: remove artifact %s failed: %v", dest, rmErr)
		}
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_no": uploadNo})
}

func (h *Handler) uploadYouTube(c *gin.Context) {
	if err := h.store.CheckAdmission(); err != nil {
		h.abortWith(c, err)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	if _, ok := extract.VideoID(req.URL); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid youtube url"})
		return
	}

	uploadNo, err := h.ingest(c.Request.Context(), "", func(ctx context.Context) (string, error) {
		return h.extractor.FromYouTube(ctx, req.URL)
	})
	if err != nil {
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_no": uploadNo})
}

// ingest runs the slow path (extract, chunk, embed, index) on the bounded
// pool and admits the finished session. The store lock is only taken inside
// Admit, after all the slow work is done. A request that ends mid-job must
// not commit: once the handler has answered with an error, a session nobody
// holds the id of would burn a capacity slot until the sweeper reaps it.
func (h *Handler) ingest(ctx context.Context, artifact string, extractFn func(context.Context) (string, error)) (string, error) {
	ids := make(chan string, 1)
	err := h.pool.Do(ctx, func(ctx context.Context) error {
		text, err := extractFn(ctx)
		if err != nil {
			return err
		}
		session, err := rag.BuildSession(ctx, h.embedder, text, rag.ChunkConfig{
			Size:      h.cfg.ChunkSize,
			Overlap:   h.cfg.ChunkOverlap,
			MaxChunks: h.cfg.MaxChunks,
		})
		if err != nil {
			return err
		}
		session.SourcePath = artifact
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := h.store.Admit(session)
		if err != nil {
			return err
		}
		ids <- id
		return nil
	})
	if err != nil {
		return "", err
	}
	return <-ids, nil
}

type askRequest struct {
	Question string `json:"question"`
	UploadNo string `json:"upload_no"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.UploadNo) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question and upload_no are required"})
		return
	}

	// one lookup; the session pointer stays valid for the whole pipeline
	// even if the sweeper evicts it mid-query
	session, err := h.store.Get(req.UploadNo)
	if err != nil {
		h.abortWith(c, err)
		return
	}

	if res, ok := h.cache.GetAnswer(c.Request.Context(), req.UploadNo, req.Question); ok {
		c.JSON(http.StatusOK, res)
		return
	}

	res, err := h.engine.Answer(c.Request.Context(), session, req.Question)
	if err != nil {
		h.abortWith(c, err)
		return
	}

	h.cache.SetAnswer(c.Request.Context(), req.UploadNo, req.Question, res)
	if h.history != nil {
		rec := &models.AskRecord{
			UploadNo:          req.UploadNo,
			Question:          req.Question,
			ClarifiedQuestion: res.ClarifiedQuestion,
			Answer:            res.Answer,
		}
		if err := h.history.Record(c.Request.Context(), rec); err != nil {
			log.Printf("ask: record history failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) historyList(c *gin.Context) {
	uploadNo := c.Param("upload_no")
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	records, err := h.history.List(c.Request.Context(), uploadNo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		if _, err := h.store.Get(uploadNo); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		records = make([]*models.AskRecord, 0)
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// abortWith maps each error kind to its one stable status code. Anything
// unrecognized is an internal failure.
func (h *Handler) abortWith(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid upload_no"})
	case errors.Is(err, store.ErrCapacityExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "maximum uploads reached"})
	case errors.Is(err, store.ErrResourceExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is under high load"})
	case errors.Is(err, worker.ErrBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is busy, please retry"})
	case errors.Is(err, extract.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
	case errors.Is(err, extract.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid youtube url"})
	case errors.Is(err, extract.ErrExtraction),
		errors.Is(err, embwrap.ErrEmbedding),
		errors.Is(err, llm.ErrCompletion):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
