package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa-be/pkg/rag/chunker"
)

var (
	// ErrSealed is returned on Insert after the index has been marked ready
	// for queries. This is a programming-contract violation, not a user error.
	ErrSealed = errors.New("index: insert after seal")
)

// Result is one retrieval hit, ordered by descending cosine similarity.
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// Index is a per-session brute-force cosine similarity index. It is built
// once during ingestion (Insert), sealed, and queried read-only afterwards.
// Entries are never removed individually; the whole index dies with its
// session.
type Index struct {
	mu     sync.RWMutex
	dim    int
	sealed bool
	chunks []chunker.Chunk
	vecs   [][]float32
	mags   []float64
}

// New creates an index for vectors of the given dimensionality.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index: invalid dimension %d", dim)
	}
	return &Index{dim: dim}, nil
}

// Insert adds one (chunk, embedding) pair during the build phase.
// A dimensionality mismatch is a construction error.
func (i *Index) Insert(chunk chunker.Chunk, vec []float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.sealed {
		return ErrSealed
	}
	if len(vec) != i.dim {
		return fmt.Errorf("index: vector dim %d != index dim %d", len(vec), i.dim)
	}

	i.chunks = append(i.chunks, chunk)
	i.vecs = append(i.vecs, vec)
	i.mags = append(i.mags, magnitude(vec))
	return nil
}

// Seal marks the build phase complete. Queries issued after Seal returns are
// guaranteed to see the full chunk set.
func (i *Index) Seal() {
	i.mu.Lock()
	i.sealed = true
	i.mu.Unlock()
}

// Len reports the number of indexed chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// Chunks returns the indexed chunks in original document order.
func (i *Index) Chunks() []chunker.Chunk {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]chunker.Chunk, len(i.chunks))
	copy(out, i.chunks)
	return out
}

// Query returns up to k results sorted by descending similarity, ties broken
// by ascending chunk index for determinism. An empty index yields an empty
// result, not an error.
func (i *Index) Query(query []float32, k int) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.vecs) == 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("index: query dim %d != index dim %d", len(query), i.dim)
	}

	qm := magnitude(query)
	if qm == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(i.vecs))
	for j := range i.vecs {
		if i.mags[j] == 0 {
			continue
		}
		s := dot(query, i.vecs[j]) / (qm * i.mags[j])
		if math.IsNaN(s) {
			continue
		}
		results = append(results, Result{Chunk: i.chunks[j], Score: s})
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Chunk.Index < results[b].Chunk.Index
	})

	if k <= 0 || k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 { return math.Sqrt(dot(v, v)) }
