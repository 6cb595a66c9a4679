package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, vec ...float32) Entry {
	return Entry{ID: id, Chunk: Chunk{Source: id + ".md", Text: id}, Vector: vec}
}

func TestIndex_InsertAndSize(t *testing.T) {
	ix := NewIndex()
	assert.Equal(t, 0, ix.Size())

	n, err := ix.Insert([]Entry{entry("a", 1, 0), entry("b", 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, ix.Size())
	assert.Equal(t, 2, ix.Dimension())

	ix.Clear()
	assert.Equal(t, 0, ix.Size())
	assert.Equal(t, 0, ix.Dimension())

	// A new dimension can be established after Clear.
	n, err = ix.Insert([]Entry{entry("c", 1, 2, 3)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, ix.Dimension())
}

func TestIndex_DimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Insert([]Entry{entry("a", 1, 0, 0)})
	require.NoError(t, err)

	_, err = ix.Insert([]Entry{entry("b", 1, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, ix.Size())

	// A bad vector anywhere in the batch rejects the whole batch.
	_, err = ix.Insert([]Entry{entry("c", 0, 1, 0), entry("d", 1)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, ix.Size())
}

func TestIndex_QueryEmptyIndex(t *testing.T) {
	ix := NewIndex()
	for _, k := range []int{1, 5, 100} {
		res, err := ix.Query([]float32{1, 0}, k)
		require.NoError(t, err)
		assert.Empty(t, res)
	}
}

func TestIndex_QueryInvalidK(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Query([]float32{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ix.Query([]float32{1}, -3)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIndex_QueryRankingAndTopK(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Insert([]Entry{
		entry("orthogonal", 0, 1),
		entry("exact", 1, 0),
		entry("close", 0.9, 0.1),
	})
	require.NoError(t, err)

	res, err := ix.Query([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)

	// Inserting the exact query vector yields similarity 1.0 ranked first.
	assert.Equal(t, "exact", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "close", res[1].Chunk.Text)
	assert.Greater(t, res[0].Score, res[1].Score)

	// k larger than the index returns everything, descending.
	res, err = ix.Query([]float32{1, 0}, 50)
	require.NoError(t, err)
	require.Len(t, res, 3)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func TestIndex_TieBreakKeepsInsertionOrder(t *testing.T) {
	ix := NewIndex()
	// Identical vectors score identically against any query.
	_, err := ix.Insert([]Entry{
		entry("first", 1, 1),
		entry("second", 1, 1),
		entry("third", 1, 1),
	})
	require.NoError(t, err)

	res, err := ix.Query([]float32{2, 2}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "first", res[0].Chunk.Text)
	assert.Equal(t, "second", res[1].Chunk.Text)
	assert.Equal(t, "third", res[2].Chunk.Text)
}

func TestIndex_QueryVectorDimensionMismatch(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Insert([]Entry{entry("a", 1, 0)})
	require.NoError(t, err)

	_, err = ix.Query([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIndex_SizeTracksClears(t *testing.T) {
	ix := NewIndex()
	total := 0
	for batch := 0; batch < 3; batch++ {
		var entries []Entry
		for i := 0; i < 4; i++ {
			entries = append(entries, entry(fmt.Sprintf("e%d-%d", batch, i), float32(i), 1))
		}
		n, err := ix.Insert(entries)
		require.NoError(t, err)
		total += n
		assert.Equal(t, total, ix.Size())
	}
	ix.Clear()
	assert.Equal(t, 0, ix.Size())
}

func TestIndex_SnapshotIsACopy(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Insert([]Entry{entry("a", 1, 0)})
	require.NoError(t, err)

	snap := ix.Snapshot()
	require.Len(t, snap, 1)
	ix.Clear()
	assert.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].ID)
}
