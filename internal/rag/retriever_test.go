package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed vector per known text and fails otherwise.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func TestRetriever_EmptyIndexIsValid(t *testing.T) {
	emb := &stubEmbedder{}
	r := NewRetriever(NewIndex(), emb)

	res, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Zero(t, emb.calls, "no provider call on an empty index")
}

func TestRetriever_InvalidK(t *testing.T) {
	r := NewRetriever(NewIndex(), &stubEmbedder{})
	_, err := r.Retrieve(context.Background(), "q", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Insert([]Entry{entry("a", 1, 0, 0)})
	require.NoError(t, err)

	emb := &stubEmbedder{err: errors.New("provider down")}
	r := NewRetriever(ix, emb)

	_, err = r.Retrieve(context.Background(), "q", 3)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, 1, emb.calls, "exactly one embed call, no retries")
}

func TestRetriever_RanksBySimilarity(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Insert([]Entry{
		{ID: "1", Chunk: Chunk{Source: "promo.md", Text: "SAVE15 gives 15% off orders"}, Vector: []float32{0.9, 0.1, 0}},
		{ID: "2", Chunk: Chunk{Source: "shipping.md", Text: "standard shipping takes 5 days"}, Vector: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	emb := &stubEmbedder{vectors: map[string][]float32{
		"discount code SAVE15": {1, 0, 0},
	}}
	r := NewRetriever(ix, emb)

	res, err := r.Retrieve(context.Background(), "discount code SAVE15", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "promo.md", res[0].Chunk.Source)
	assert.Greater(t, res[0].Score, 0.0)
}
