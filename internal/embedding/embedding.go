// Package embedding wires the eino embedding capability used for both
// ingestion and query-time retrieval.
package embedding

import (
	"context"
	"errors"
	"fmt"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"recallai/internal/config"
)

// ErrEmbedding marks failures of the embedding capability.
var ErrEmbedding = errors.New("embedding failed")

// NewOpenAI builds an embedder for any openai-compatible endpoint. The same
// instance must serve ingestion and queries so dimensions agree.
func NewOpenAI(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	dim := cfg.EmbedDim
	emb, err := openaiembed.NewEmbedder(ctx, &openaiembed.EmbeddingConfig{
		APIKey:     cfg.EmbedAPIKey,
		Model:      cfg.EmbedModel,
		BaseURL:    cfg.EmbedBaseURL,
		Dimensions: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return emb, nil
}
