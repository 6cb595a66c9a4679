// Package rag implements the retrieval-augmented generation pipeline:
// document chunking, an in-memory vector index, top-k retrieval and
// grounded generation against external embedding/generation providers.
package rag

import (
	"context"
	"fmt"
	"strings"
)

// Chunk is a bounded span of document text extracted for independent
// embedding and retrieval.
type Chunk struct {
	Source string `json:"source" bson:"source"`
	Index  int    `json:"index" bson:"index"`
	Start  int    `json:"start" bson:"start"`
	End    int    `json:"end" bson:"end"`
	Text   string `json:"text" bson:"text"`
}

// Result is a retrieved chunk with its cosine similarity to the query.
type Result struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// EmbeddingClient maps text to a fixed-length vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationClient returns model-generated text for a prompt.
type GenerationClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChunkText splits text into consecutive windows of chunkSize characters,
// advancing by chunkSize-overlap each step; the final window may be
// shorter. Offsets are rune positions into the original text. Whitespace-only
// input yields no chunks.
func ChunkText(text string, chunkSize, overlap int, source string) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidArgument, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidArgument, chunkSize, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := chunkSize - overlap

	var chunks []Chunk
	for start, idx := 0, 0; start < len(runes); start, idx = start+step, idx+1 {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Source: source,
			Index:  idx,
			Start:  start,
			End:    end,
			Text:   string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
