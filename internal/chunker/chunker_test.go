package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	if got := Split("", 400, 40); got != nil {
		t.Fatalf("expected no chunks for empty input, got %v", got)
	}
	if got := Split("   \n\n  ", 400, 40); got != nil {
		t.Fatalf("expected no chunks for whitespace input, got %v", got)
	}
}

func TestSplitShortInput(t *testing.T) {
	chunks := Split("hello world", 400, 40)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Fatalf("unexpected chunk content: %q", chunks[0])
	}
}

func TestSplitRespectsSizeBound(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	chunks := Split(text, 100, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk %d exceeds size bound: %d chars", i, len(c))
		}
		if strings.TrimSpace(c) == "" {
			t.Fatalf("chunk %d is blank", i)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks := Split(text, 30, 0)
	for i, c := range chunks {
		if strings.Contains(c, "\n\n") {
			t.Fatalf("chunk %d spans a paragraph break: %q", i, c)
		}
	}
}

func TestSplitCoversAllWords(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	text := strings.Join(words, " ")
	chunks := Split(text, 20, 5)
	joined := strings.Join(chunks, " ")
	for _, w := range words {
		if !strings.Contains(joined, w) {
			t.Fatalf("word %q lost during chunking, chunks: %v", w, chunks)
		}
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("abcdefghi ", 30)
	chunks := Split(text, 50, 10)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// the start of each later chunk must repeat text from the previous one
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		head := chunks[i]
		if len(head) > 10 {
			head = head[:10]
		}
		if !strings.Contains(prev, strings.TrimSpace(head)) {
			t.Fatalf("chunk %d does not overlap its predecessor: head %q prev %q", i, head, prev)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40)
	first := Split(text, 120, 24)
	for i := 0; i < 5; i++ {
		again := Split(text, 120, 24)
		if len(again) != len(first) {
			t.Fatalf("run %d produced %d chunks, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d chunk %d differs: %q vs %q", i, j, again[j], first[j])
			}
		}
	}
}

func TestSplitHardCutsLongToken(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := Split(text, 100, 0)
	if len(chunks) != 10 {
		t.Fatalf("expected 10 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) != 100 {
			t.Fatalf("chunk %d has length %d, want 100", i, len(c))
		}
	}
}

func TestSplitKeepsRuneBoundaries(t *testing.T) {
	// unbroken CJK exercises the hard-cut path: every chunk must stay
	// valid UTF-8 even though rune width does not divide the size
	text := strings.Repeat("漢字のテキストは区切りなし", 40)
	chunks := Split(text, 50, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d split mid-rune: %q", i, c)
		}
	}

	// spaced CJK exercises the overlap-tail path
	text = strings.Repeat("漢字 テキスト 境界 ", 30)
	for i, c := range Split(text, 40, 10) {
		if !utf8.ValidString(c) {
			t.Fatalf("overlap chunk %d split mid-rune: %q", i, c)
		}
	}
}

func TestSplitSanitizesBadParams(t *testing.T) {
	text := strings.Repeat("word ", 200)
	// overlap >= size must not loop forever or generate oversized chunks
	chunks := Split(text, 50, 60)
	for i, c := range chunks {
		if len(c) > 50 {
			t.Fatalf("chunk %d exceeds size bound with bad overlap: %d", i, len(c))
		}
	}
	// non-positive size falls back to the default
	if got := Split("tiny", 0, 0); len(got) != 1 {
		t.Fatalf("expected default size to apply, got %v", got)
	}
}
