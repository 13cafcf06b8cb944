// Package vector implements an exact inner-product index over unit-normalized
// vectors. With a corpus of tens to low thousands of documents a full rescan
// is affordable, so the index favors exactness over approximate methods.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// normEpsilon guards against division by zero for degenerate vectors.
const normEpsilon = 1e-8

// Hit is one search result: a stable insertion offset and its similarity score.
type Hit struct {
	Offset int
	Score  float32
}

// Index stores unit-normalized vectors in insertion order and answers
// nearest-neighbor queries by brute-force inner product.
//
// Concurrent searches are safe and do not block each other; Add and Rebuild
// exclude searches and each other (single-writer/multiple-reader discipline).
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid index dimension: %d", dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Build creates an index from the given vectors, normalizing each to unit
// L2 norm. Building from an empty set is a configuration error.
func Build(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cannot build index from empty vector set")
	}
	idx, err := New(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := idx.Add(vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// Restore creates an index from vectors that are already unit-normalized,
// as produced by Entries. Vectors are stored as-is so restoring a persisted
// snapshot reproduces search scores bit-identically.
func Restore(dimension int, vectors [][]float32) (*Index, error) {
	idx, err := New(dimension)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), dimension)
		}
		c := make([]float32, len(v))
		copy(c, v)
		idx.vectors = append(idx.vectors, c)
	}
	return idx, nil
}

// Normalize returns a unit-L2-norm copy of v.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum)) + normEpsilon
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Add appends normalized copies of the given vectors, extending the index
// without disturbing existing offsets.
func (idx *Index) Add(vectors [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), idx.dimension)
		}
	}
	for _, v := range vectors {
		idx.vectors = append(idx.vectors, Normalize(v))
	}
	return nil
}

// Rebuild replaces the index contents with the given vectors. Used whenever a
// document is removed: offsets must stay contiguous and there is no
// incremental delete for a flat index.
func (idx *Index) Rebuild(vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("cannot rebuild index from empty vector set")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rebuilt := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), idx.dimension)
		}
		rebuilt = append(rebuilt, Normalize(v))
	}
	idx.vectors = rebuilt
	return nil
}

// Search normalizes the query vector and returns the topK highest inner
// products in descending order. Equal scores rank the lower offset first so
// results are deterministic. topK larger than the index size is clamped.
// An empty index yields no hits, not an error.
func (idx *Index) Search(query []float32, topK int) ([]Hit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(query), idx.dimension)
	}
	if topK <= 0 {
		return []Hit{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return []Hit{}, nil
	}

	q := Normalize(query)
	hits := make([]Hit, len(idx.vectors))
	for offset, v := range idx.vectors {
		var dot float32
		for i := range v {
			dot += v[i] * q[i]
		}
		hits[offset] = Hit{Offset: offset, Score: dot}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Offset < hits[j].Offset
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimension returns the fixed vector dimension of the index.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Entries returns copies of the stored normalized vectors in offset order,
// for snapshot persistence.
func (idx *Index) Entries() [][]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([][]float32, len(idx.vectors))
	for i, v := range idx.vectors {
		c := make([]float32, len(v))
		copy(c, v)
		out[i] = c
	}
	return out
}
