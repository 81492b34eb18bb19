package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextEmptyInput(t *testing.T) {
	assert.Nil(t, SplitText("", 1000, 200))
	assert.Nil(t, SplitText("   \n\t ", 1000, 200))
}

func TestSplitTextShortInputSingleChunk(t *testing.T) {
	chunks := SplitText("short text", 1000, 200)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "short text", chunks[0].Content)
	assert.Positive(t, chunks[0].TokenCount)
}

func TestSplitTextWindowsOverlap(t *testing.T) {
	words := make([]string, 400)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := SplitText(text, 500, 100)

	require.Greater(t, len(chunks), 2)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 500)
	}

	// Consecutive windows share text: the tail of one reappears in the next.
	tail := chunks[0].Content[len(chunks[0].Content)-40:]
	assert.Contains(t, chunks[1].Content, strings.TrimSpace(tail))
}

func TestSplitTextCoversAllContent(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 300)

	chunks := SplitText(text, 400, 80)

	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1].Content
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), last),
		"last chunk must reach the end of the input")
}

func TestSplitTextSanitizesBadParameters(t *testing.T) {
	chunks := SplitText(strings.Repeat("x ", 2000), 0, -1)
	require.NotEmpty(t, chunks)
}
