// Package rag implements the tenant-isolated retrieval index: the
// document/chunk pipeline, hybrid vector+keyword retrieval with graph
// expansion, and the indexing worker that drains the index queue.
package rag

import "strings"

// Chunk is one overlapping window of source text.
type Chunk struct {
	Index      int
	Content    string
	TokenCount int
}

// SplitText cuts text into overlapping windows of roughly size runes,
// preferring to break at whitespace near the window end. Order is
// preserved through Index. Empty input yields no chunks.
func SplitText(text string, size, overlap int) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	runes := []rune(text)
	var chunks []Chunk

	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakAtSpace(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, Chunk{
				Index:      len(chunks),
				Content:    content,
				TokenCount: estimateTokens(content),
			})
		}
		if end == len(runes) {
			break
		}
		// The next window rewinds by the overlap from wherever this one
		// actually broke, so no text is ever skipped.
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakAtSpace scans backwards from end for a whitespace boundary, but
// never shrinks the window below half its size.
func breakAtSpace(runes []rune, start, end int) int {
	limit := start + (end-start)/2
	for i := end; i > limit; i-- {
		if i < len(runes) && isSpace(runes[i]) {
			return i
		}
	}
	return end
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// estimateTokens approximates the model tokenizer at four characters per
// token, which is close enough for budget checks.
func estimateTokens(s string) int {
	n := len([]rune(s)) / 4
	if n == 0 {
		n = 1
	}
	return n
}
