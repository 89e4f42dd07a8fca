// Package chunker splits raw document text into bounded, overlapping chunks
// suitable for retrieval indexing.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// separators are tried in order: paragraph breaks first, then lines, then
// words, then a hard character cut as the last resort.
var separators = []string{"\n\n", "\n", " ", ""}

// Split divides text into chunks of at most size characters. Boundaries
// prefer paragraphs over lines over words before falling back to hard cuts,
// and consecutive chunks share up to overlap trailing characters so context
// survives a boundary. The result is a pure function of the inputs.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = 400
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	pieces := splitRecursive(text, size, separators)
	return merge(pieces, size, overlap)
}

// splitRecursive cuts text into pieces no longer than size, descending the
// separator list whenever a part is still too long.
func splitRecursive(text string, size int, seps []string) []string {
	if len(text) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	sep := seps[0]
	if sep == "" {
		var out []string
		for len(text) > size {
			cut := runeCutBefore(text, size)
			out = append(out, text[:cut])
			text = text[cut:]
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
		return out
	}

	rest := seps[1:]
	parts := strings.Split(text, sep)
	var out []string
	for i, part := range parts {
		if i < len(parts)-1 {
			// keep the separator attached so no content is lost
			part += sep
		}
		if len(part) <= size {
			if strings.TrimSpace(part) != "" {
				out = append(out, part)
			}
			continue
		}
		out = append(out, splitRecursive(part, size, rest)...)
	}
	return out
}

// merge packs pieces back into chunks of at most size characters. When a
// chunk is closed, the next one starts with the previous chunk's overlap
// tail, unless doing so would push it past the size bound.
func merge(pieces []string, size, overlap int) []string {
	var chunks []string
	var cur strings.Builder
	for _, piece := range pieces {
		if cur.Len() > 0 && cur.Len()+len(piece) > size {
			tail := cur.String()
			if chunk := strings.TrimSpace(tail); chunk != "" {
				chunks = append(chunks, chunk)
			}
			cur.Reset()
			if overlap > 0 {
				if len(tail) > overlap {
					tail = tail[runeCutAfter(tail, len(tail)-overlap):]
				}
				if len(tail)+len(piece) <= size {
					cur.WriteString(tail)
				}
			}
		}
		cur.WriteString(piece)
	}
	if chunk := strings.TrimSpace(cur.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// runeCutBefore returns the largest rune boundary <= pos, so text[:cut] is
// never split mid-rune. A rune wider than pos is kept whole.
func runeCutBefore(text string, pos int) int {
	cut := pos
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		_, n := utf8.DecodeRuneInString(text)
		return n
	}
	return cut
}

// runeCutAfter returns the smallest rune boundary >= pos.
func runeCutAfter(text string, pos int) int {
	cut := pos
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return cut
}
