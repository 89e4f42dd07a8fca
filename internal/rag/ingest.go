package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"recallai/internal/chunker"
	embwrap "recallai/internal/embedding"
	"recallai/internal/models"
	"recallai/internal/vectorindex"
)

// ChunkConfig bounds how a document is split for retrieval.
type ChunkConfig struct {
	Size      int
	Overlap   int
	MaxChunks int
}

// BuildSession turns raw extracted text into a retrievable session: split,
// cap, embed, index, freeze. The store is not involved; the caller admits
// the finished session afterwards, so no lock is held during this work.
//
// Documents producing more than MaxChunks chunks are truncated head-first:
// earlier content wins, trailing chunks are dropped. Deterministic by
// construction.
func BuildSession(ctx context.Context, embedder embedding.Embedder, text string, cfg ChunkConfig) (*models.Session, error) {
	chunks := chunker.Split(text, cfg.Size, cfg.Overlap)
	if len(chunks) == 0 {
		return nil, errors.New("document produced no text")
	}
	if cfg.MaxChunks > 0 && len(chunks) > cfg.MaxChunks {
		chunks = chunks[:cfg.MaxChunks]
	}

	vecs, err := embedder.EmbedStrings(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: embed %d chunks: %v", embwrap.ErrEmbedding, len(chunks), err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", embwrap.ErrEmbedding, len(vecs), len(chunks))
	}

	index := vectorindex.NewFlat(len(vecs[0]))
	if err := index.Add(vecs...); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	index.Freeze()

	return &models.Session{
		RawText:   text,
		Chunks:    chunks,
		Index:     index,
		CreatedAt: time.Now(),
	}, nil
}
