package services

import (
	"regexp"
	"strings"
)

// Chunker splits raw text into bounded, overlapping segments. It is the
// single canonical chunking entry point for every ingestion path; chunking is
// deterministic for identical input and options.
type Chunker struct {
	ChunkSize    int // max characters per chunk
	Overlap      int // characters repeated between consecutive window slices
	MinChunkSize int // smallest chunk kept when the text yields more than one
	MaxChunks    int // hard cap on total chunks per document
}

// NewChunker returns a Chunker with the given options, substituting defaults
// for non-positive values.
func NewChunker(chunkSize, overlap, minChunkSize, maxChunks int) *Chunker {
	c := &Chunker{
		ChunkSize:    chunkSize,
		Overlap:      overlap,
		MinChunkSize: minChunkSize,
		MaxChunks:    maxChunks,
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 800
	}
	if c.Overlap < 0 {
		c.Overlap = 120
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = 200
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = 200
	}
	return c
}

var blankLineRegex = regexp.MustCompile(`\n{2,}`)

// ChunkText splits text into chunks of at most ChunkSize characters.
//
// Paragraph-like blocks (separated by blank lines) are greedily packed into
// chunks joined by blank lines. A block that alone exceeds ChunkSize is
// sliced into fixed windows advancing ChunkSize-Overlap characters, so the
// overlap regions are the only duplicated spans. Chunks shorter than
// MinChunkSize are discarded unless the whole text produced a single chunk.
func (c *Chunker) ChunkText(text string) []string {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if clean == "" {
		return nil
	}

	blocks := blankLineRegex.Split(clean, -1)

	var chunks []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		if len(block) > c.ChunkSize {
			flush()
			chunks = append(chunks, c.sliceBlock(block)...)
			continue
		}

		if buf.Len() == 0 {
			buf.WriteString(block)
			continue
		}

		if buf.Len()+2+len(block) <= c.ChunkSize {
			buf.WriteString("\n\n")
			buf.WriteString(block)
		} else {
			flush()
			buf.WriteString(block)
		}
	}
	flush()

	// The minimum-size filter never discards the text entirely: a sole
	// chunk is returned as-is even when short.
	if len(chunks) > 1 {
		kept := chunks[:0]
		for _, chunk := range chunks {
			if len(strings.TrimSpace(chunk)) >= c.MinChunkSize {
				kept = append(kept, chunk)
			}
		}
		chunks = kept
	}

	if len(chunks) > c.MaxChunks {
		chunks = chunks[:c.MaxChunks]
	}
	return chunks
}

// sliceBlock cuts an oversized block into windows of ChunkSize characters,
// each window starting Overlap characters before the previous one ended. The
// final partial window is kept even when short.
func (c *Chunker) sliceBlock(block string) []string {
	step := c.ChunkSize - c.Overlap
	if step < 1 {
		step = 1
	}

	var out []string
	for i := 0; i < len(block); i += step {
		end := i + c.ChunkSize
		if end >= len(block) {
			out = append(out, block[i:])
			break
		}
		out = append(out, block[i:end])
	}
	return out
}
