package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextEmptyInput(t *testing.T) {
	chunker := NewChunker(800, 120, 200, 200)

	assert.Empty(t, chunker.ChunkText(""))
	assert.Empty(t, chunker.ChunkText("   \n\n  \t\n"))
}

func TestChunkTextSoleShortChunkKept(t *testing.T) {
	chunker := NewChunker(800, 120, 200, 200)

	chunks := chunker.ChunkText("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkTextDeterministic(t *testing.T) {
	chunker := NewChunker(100, 20, 10, 200)
	text := "first paragraph here\n\nsecond paragraph with more words\n\n" +
		strings.Repeat("x", 250) + "\n\nlast one"

	first := chunker.ChunkText(text)
	second := chunker.ChunkText(text)
	assert.Equal(t, first, second)
}

func TestChunkTextOversizedBlockWindows(t *testing.T) {
	chunker := NewChunker(800, 120, 200, 200)
	text := strings.Repeat("A", 1000)

	chunks := chunker.ChunkText(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, text[0:800], chunks[0])
	assert.Equal(t, text[680:1000], chunks[1])
}

func TestChunkTextWindowOverlapReconstructs(t *testing.T) {
	chunker := NewChunker(800, 120, 200, 200)
	text := strings.Repeat("0123456789", 100) // 1000 chars, non-uniform

	chunks := chunker.ChunkText(text)
	require.Len(t, chunks, 2)

	// The overlap region is the only duplicated span; trimming it from the
	// second chunk reconstructs the original text.
	assert.Equal(t, text, chunks[0]+chunks[1][120:])
}

func TestChunkTextNoChunkExceedsSize(t *testing.T) {
	chunker := NewChunker(300, 50, 10, 200)
	var blocks []string
	for i := 0; i < 20; i++ {
		blocks = append(blocks, strings.Repeat("word ", i*7+1))
	}
	text := strings.Join(blocks, "\n\n")

	for _, chunk := range chunker.ChunkText(text) {
		assert.LessOrEqual(t, len(chunk), 300)
	}
}

func TestChunkTextPacksSmallBlocks(t *testing.T) {
	chunker := NewChunker(800, 120, 10, 200)

	chunks := chunker.ChunkText("alpha\n\nbeta\n\n\n\ngamma")
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha\n\nbeta\n\ngamma", chunks[0])
}

func TestChunkTextNormalizesCRLF(t *testing.T) {
	chunker := NewChunker(800, 120, 1, 200)

	chunks := chunker.ChunkText("alpha\r\n\r\nbeta")
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha\n\nbeta", chunks[0])
}

func TestChunkTextMinSizeFilter(t *testing.T) {
	chunker := NewChunker(720, 120, 200, 200)
	big := strings.Repeat("a", 700)
	text := big + "\n\n" + strings.Repeat("b", 50)

	chunks := chunker.ChunkText(text)
	require.Len(t, chunks, 1, "sub-minimum trailing chunk should be dropped")
	assert.Equal(t, big, chunks[0])
}

func TestChunkTextMaxChunksCap(t *testing.T) {
	chunker := NewChunker(10, 0, 1, 3)
	text := strings.Repeat("block\n\n", 20)

	chunks := chunker.ChunkText(text)
	assert.Len(t, chunks, 3)
}

func TestChunkTextMinimumStep(t *testing.T) {
	// Overlap >= chunk size degenerates to a step of one; the chunker must
	// still terminate and respect the max chunk cap.
	chunker := NewChunker(10, 15, 1, 50)
	chunks := chunker.ChunkText(strings.Repeat("z", 40))

	assert.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), 50)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 10)
	}
}
