package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"recallai/internal/llm"
	"recallai/internal/models"
	"recallai/internal/vectorindex"
)

// fakeEmbedder maps each input string to a fixed vector, falling back to a
// zero vector for unknown inputs.
type fakeEmbedder struct {
	dim     int
	vectors map[string][]float64
	err     error
	calls   [][]string
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = make([]float64, f.dim)
		}
	}
	return out, nil
}

// fakeCompleter answers each prompt in order and records what it was asked.
type fakeCompleter struct {
	responses []string
	errAt     int // 1-based call number to fail on, 0 disables
	calls     []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls = append(f.calls, prompt)
	if f.errAt == len(f.calls) {
		return "", fmt.Errorf("%w: mock failure", llm.ErrCompletion)
	}
	if len(f.calls) <= len(f.responses) {
		return f.responses[len(f.calls)-1], nil
	}
	return "fallback", nil
}

func testSession(t *testing.T, chunks []string, vecs [][]float64) *models.Session {
	t.Helper()
	idx := vectorindex.NewFlat(len(vecs[0]))
	if err := idx.Add(vecs...); err != nil {
		t.Fatalf("add vectors: %v", err)
	}
	idx.Freeze()
	return &models.Session{Chunks: chunks, Index: idx}
}

func TestAnswerRunsAllFourStages(t *testing.T) {
	session := testSession(t,
		[]string{"chunk zero", "chunk one", "chunk two", "chunk three"},
		[][]float64{{10, 0}, {1, 0}, {2, 0}, {3, 0}},
	)
	emb := &fakeEmbedder{dim: 2, vectors: map[string][]float64{
		"clarified question": {0, 0},
	}}
	comp := &fakeCompleter{responses: []string{"clarified question", "draft answer", "final answer"}}
	engine := NewEngine(emb, comp)

	res, err := engine.Answer(context.Background(), session, "raw question")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if res.ClarifiedQuestion != "clarified question" {
		t.Fatalf("clarified = %q", res.ClarifiedQuestion)
	}
	if res.Answer != "final answer" {
		t.Fatalf("answer = %q", res.Answer)
	}
	if len(comp.calls) != 3 {
		t.Fatalf("expected 3 completions, got %d", len(comp.calls))
	}

	// clarify sees the raw question
	if !strings.Contains(comp.calls[0], "raw question") {
		t.Fatalf("clarify prompt missing raw question: %q", comp.calls[0])
	}
	// draft sees the clarified question and the retrieved chunks
	if !strings.Contains(comp.calls[1], "clarified question") {
		t.Fatalf("draft prompt missing clarified question: %q", comp.calls[1])
	}
	for _, chunk := range []string{"chunk one", "chunk two", "chunk three"} {
		if !strings.Contains(comp.calls[1], chunk) {
			t.Fatalf("draft prompt missing %q: %q", chunk, comp.calls[1])
		}
	}
	if strings.Contains(comp.calls[1], "chunk zero") {
		t.Fatalf("draft prompt includes a chunk outside the top 3: %q", comp.calls[1])
	}
	// refine sees the original question plus the draft
	if !strings.Contains(comp.calls[2], "raw question") {
		t.Fatalf("refine prompt missing original question: %q", comp.calls[2])
	}
	if !strings.Contains(comp.calls[2], "draft answer") {
		t.Fatalf("refine prompt missing draft: %q", comp.calls[2])
	}

	// retrieval embeds the clarified question, not the raw one
	if len(emb.calls) != 1 || len(emb.calls[0]) != 1 || emb.calls[0][0] != "clarified question" {
		t.Fatalf("unexpected embed calls: %v", emb.calls)
	}
}

func TestAnswerRetrievedChunksFollowDistanceOrder(t *testing.T) {
	session := testSession(t,
		[]string{"far", "nearest", "middle"},
		[][]float64{{9, 0}, {1, 0}, {2, 0}},
	)
	emb := &fakeEmbedder{dim: 2, vectors: map[string][]float64{"q": {0, 0}}}
	comp := &fakeCompleter{responses: []string{"q", "draft", "final"}}
	engine := NewEngine(emb, comp)

	if _, err := engine.Answer(context.Background(), session, "anything"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	wantContext := "nearest\n\nmiddle\n\nfar"
	if !strings.Contains(comp.calls[1], wantContext) {
		t.Fatalf("draft prompt context out of order: %q", comp.calls[1])
	}
}

func TestAnswerSmallSessionUsesAllChunks(t *testing.T) {
	session := testSession(t, []string{"only chunk"}, [][]float64{{1, 1}})
	emb := &fakeEmbedder{dim: 2, vectors: map[string][]float64{}}
	comp := &fakeCompleter{responses: []string{"q", "draft", "final"}}
	engine := NewEngine(emb, comp)

	if _, err := engine.Answer(context.Background(), session, "anything"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(comp.calls[1], "only chunk") {
		t.Fatalf("draft prompt missing the single chunk: %q", comp.calls[1])
	}
}

func TestAnswerClarifyFailureAborts(t *testing.T) {
	session := testSession(t, []string{"a"}, [][]float64{{1, 1}})
	emb := &fakeEmbedder{dim: 2}
	comp := &fakeCompleter{errAt: 1}
	engine := NewEngine(emb, comp)

	_, err := engine.Answer(context.Background(), session, "q")
	if !errors.Is(err, llm.ErrCompletion) {
		t.Fatalf("expected completion error, got %v", err)
	}
	if len(emb.calls) != 0 {
		t.Fatalf("retrieval ran after clarify failed")
	}
}

func TestAnswerRefineFailureYieldsNoPartialResult(t *testing.T) {
	session := testSession(t, []string{"a"}, [][]float64{{1, 1}})
	emb := &fakeEmbedder{dim: 2}
	comp := &fakeCompleter{responses: []string{"q", "draft"}, errAt: 3}
	engine := NewEngine(emb, comp)

	res, err := engine.Answer(context.Background(), session, "q")
	if !errors.Is(err, llm.ErrCompletion) {
		t.Fatalf("expected completion error, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil result on stage failure, got %+v", res)
	}
}

func TestAnswerEmbedFailure(t *testing.T) {
	session := testSession(t, []string{"a"}, [][]float64{{1, 1}})
	emb := &fakeEmbedder{dim: 2, err: errors.New("embed backend down")}
	comp := &fakeCompleter{responses: []string{"q"}}
	engine := NewEngine(emb, comp)

	_, err := engine.Answer(context.Background(), session, "q")
	if err == nil {
		t.Fatalf("expected error from failed embedding")
	}
	if len(comp.calls) != 1 {
		t.Fatalf("draft stage ran after retrieval failed, calls %d", len(comp.calls))
	}
}
