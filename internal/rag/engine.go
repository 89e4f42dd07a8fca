// Package rag implements the retrieval-augmented query pipeline and the
// ingestion path that prepares sessions for it.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	embwrap "recallai/internal/embedding"
	"recallai/internal/llm"
	"recallai/internal/models"
)

// retrieveK is the number of chunks fed to the draft stage. Sessions with
// fewer chunks contribute everything they have.
const retrieveK = 3

// Result is the output contract of a completed query.
type Result struct {
	ClarifiedQuestion string `json:"clarified_question"`
	Answer            string `json:"answer"`
}

// Engine answers a question over one ingested session in four sequential
// stages: clarify, retrieve, draft, refine. No stage is retried and any
// stage failure aborts the whole query with no partial result.
type Engine struct {
	embedder  embedding.Embedder
	completer llm.Completer
}

func NewEngine(embedder embedding.Embedder, completer llm.Completer) *Engine {
	return &Engine{embedder: embedder, completer: completer}
}

// Answer runs the pipeline. The caller must resolve session with a single
// store lookup and pass the same pointer for the whole call; the engine never
// looks the session up again.
func (e *Engine) Answer(ctx context.Context, session *models.Session, question string) (*Result, error) {
	// TODO: evaluate falling back to the raw question when clarification
	// fails instead of aborting the query.
	clarified, err := e.completer.Complete(ctx, clarifyPrompt(question))
	if err != nil {
		return nil, fmt.Errorf("clarify question: %w", err)
	}

	contextText, err := e.retrieve(ctx, session, clarified)
	if err != nil {
		return nil, err
	}

	draft, err := e.completer.Complete(ctx, draftPrompt(contextText, clarified))
	if err != nil {
		return nil, fmt.Errorf("draft answer: %w", err)
	}

	final, err := e.completer.Complete(ctx, refinePrompt(question, contextText, draft))
	if err != nil {
		return nil, fmt.Errorf("refine answer: %w", err)
	}

	return &Result{ClarifiedQuestion: clarified, Answer: final}, nil
}

// retrieve embeds the clarified question, runs the nearest-neighbour search
// and joins the matching chunks in result order.
func (e *Engine) retrieve(ctx context.Context, session *models.Session, clarified string) (string, error) {
	vecs, err := e.embedder.EmbedStrings(ctx, []string{clarified})
	if err != nil {
		return "", fmt.Errorf("%w: embed question: %v", embwrap.ErrEmbedding, err)
	}
	if len(vecs) != 1 {
		return "", fmt.Errorf("%w: got %d vectors for one question", embwrap.ErrEmbedding, len(vecs))
	}

	rows, err := session.Index.Search(vecs[0], retrieveK)
	if err != nil {
		return "", fmt.Errorf("search index: %w", err)
	}

	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		if row < 0 || row >= len(session.Chunks) {
			return "", fmt.Errorf("index row %d out of range for %d chunks", row, len(session.Chunks))
		}
		parts = append(parts, session.Chunks[row])
	}
	return strings.Join(parts, "\n\n"), nil
}

func clarifyPrompt(question string) string {
	return fmt.Sprintf("The user asked: %q\nRewrite this question to be explicit and unambiguous.", question)
}

func draftPrompt(contextText, clarified string) string {
	return fmt.Sprintf("Answer using only this context:\n%s\n\nQuestion: %s", contextText, clarified)
}

func refinePrompt(question, contextText, draft string) string {
	return fmt.Sprintf("You are a helpful assistant. The user asked: %s\nContext: %s\nDraft answer: %s\nImprove clarity, accuracy, and detail.", question, contextText, draft)
}
