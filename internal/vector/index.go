package vector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/calderasoft/patternrag/internal/common/telemetry"
	"github.com/calderasoft/patternrag/internal/pattern"
)

// Index is an immutable exact-scan index over chunk embeddings. Vectors
// are L2-normalized at build time so search reduces to a dot product.
type Index struct {
	dim     int
	vectors [][]float32
	chunks  []pattern.Chunk
}

// SearchResult is one nearest-neighbour hit. Position is the rank the
// vector scan assigned, starting at 0.
type SearchResult struct {
	ChunkID  string
	Score    float32
	Position int
	Chunk    *pattern.Chunk
}

// Build constructs an index from parallel chunk and embedding slices.
// Embeddings must agree in count and dimension.
func Build(chunks []pattern.Chunk, embeddings [][]float32) (*Index, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("vector: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return &Index{}, nil
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("vector: zero-dimensional embeddings")
	}
	vectors := make([][]float32, len(embeddings))
	for i, vec := range embeddings {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector: embedding %d has dimension %d, expected %d", i, len(vec), dim)
		}
		vectors[i] = normalize(vec)
	}
	owned := make([]pattern.Chunk, len(chunks))
	copy(owned, chunks)
	return &Index{dim: dim, vectors: vectors, chunks: owned}, nil
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Dim reports the embedding dimension, 0 for an empty index.
func (idx *Index) Dim() int { return idx.dim }

// Chunks returns the indexed chunks in insertion order.
func (idx *Index) Chunks() []pattern.Chunk { return idx.chunks }

// Attach re-links chunk pattern pointers after a load from disk, where
// only pattern IDs survive. Every indexed chunk must resolve.
func (idx *Index) Attach(patterns []pattern.Pattern) error {
	byID := make(map[string]*pattern.Pattern, len(patterns))
	for i := range patterns {
		byID[patterns[i].PatternID] = &patterns[i]
	}
	for i := range idx.chunks {
		p, ok := byID[idx.chunks[i].PatternID]
		if !ok {
			return fmt.Errorf("vector: chunk %s references unknown pattern %s", idx.chunks[i].ChunkID, idx.chunks[i].PatternID)
		}
		idx.chunks[i].Pattern = p
	}
	return nil
}

// Search returns the k chunks nearest to query by cosine similarity.
// Ties keep insertion order. An empty index yields empty results.
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	if len(idx.chunks) == 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("vector: query dimension %d, index dimension %d", len(query), idx.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	start := time.Now()
	q := normalize(query)
	results := make([]SearchResult, len(idx.chunks))
	for i := range idx.chunks {
		results[i] = SearchResult{
			ChunkID: idx.chunks[i].ChunkID,
			Score:   dot(q, idx.vectors[i]),
			Chunk:   &idx.chunks[i],
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	for i := range results {
		results[i].Position = i
	}
	telemetry.RecordVectorSearch(time.Since(start))
	return results, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	scale := float32(1 / math.Sqrt(norm))
	for i, v := range vec {
		out[i] = v * scale
	}
	return out
}
