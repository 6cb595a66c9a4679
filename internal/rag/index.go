package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Entry is the unit of storage in the index: a chunk, its embedding vector
// and an opaque identifier.
type Entry struct {
	ID     string    `json:"id" bson:"_id"`
	Chunk  Chunk     `json:"chunk" bson:"chunk"`
	Vector []float32 `json:"vector" bson:"vector"`
}

// Index is an in-memory brute-force cosine-similarity vector index. The
// dimension is fixed by the first insertion and reset by Clear. Mutations
// are serialized relative to queries; queries may run concurrently with
// each other.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []Entry
}

func NewIndex() *Index { return &Index{} }

// Insert adds entries to the index and returns the count inserted. The
// batch is validated up front: any vector whose length differs from the
// index's dimension (established by the first vector ever inserted) fails
// the whole batch and leaves the index unchanged.
func (ix *Index) Insert(entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dimension
	if dim == 0 {
		dim = len(entries[0].Vector)
		if dim == 0 {
			return 0, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
		}
	}
	for _, e := range entries {
		if len(e.Vector) != dim {
			return 0, fmt.Errorf("%w: index dimension %d, entry %q has %d", ErrDimensionMismatch, dim, e.ID, len(e.Vector))
		}
	}

	ix.dimension = dim
	ix.entries = append(ix.entries, entries...)
	return len(entries), nil
}

// Query returns up to k entries ranked by descending cosine similarity to
// vector. Ties keep insertion order. An empty index yields an empty result.
func (ix *Index) Query(vector []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 {
		return nil, nil
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: index dimension %d, query has %d", ErrDimensionMismatch, ix.dimension, len(vector))
	}

	scored := make([]Result, len(ix.entries))
	for i, e := range ix.entries {
		scored[i] = Result{Chunk: e.Chunk, Score: cosine(e.Vector, vector)}
	}
	// Stable sort so equal scores keep insertion order.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Clear removes all entries and resets the dimension so the next insertion
// establishes a new one.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = nil
	ix.dimension = 0
}

func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Snapshot returns a copy of all entries for persistence.
func (ix *Index) Snapshot() []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
