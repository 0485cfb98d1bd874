package vector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/calderasoft/patternrag/internal/pattern"
)

func testChunks(ids ...string) []pattern.Chunk {
	chunks := make([]pattern.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = pattern.Chunk{ChunkID: id + ":0", PatternID: id}
	}
	return chunks
}

func TestBuildRejectsMismatchedInput(t *testing.T) {
	if _, err := Build(testChunks("a", "b"), [][]float32{{1, 0}}); err == nil {
		t.Fatal("expected error for count mismatch")
	}
	if _, err := Build(testChunks("a", "b"), [][]float32{{1, 0}, {1}}); err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
	if _, err := Build(testChunks("a"), [][]float32{{}}); err == nil {
		t.Fatal("expected error for zero-dimensional embedding")
	}
}

func TestSearchOrdersByCosine(t *testing.T) {
	idx, err := Build(testChunks("near", "mid", "far"), [][]float32{
		{1, 0, 0},
		{1, 1, 0},
		{0, 0, 1},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	results, err := idx.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ChunkID != "near:0" || results[1].ChunkID != "mid:0" || results[2].ChunkID != "far:0" {
		t.Fatalf("unexpected order: %s, %s, %s", results[0].ChunkID, results[1].ChunkID, results[2].ChunkID)
	}
	for i, r := range results {
		if r.Position != i {
			t.Fatalf("result %d has position %d", i, r.Position)
		}
	}
	if results[0].Score <= results[1].Score || results[1].Score <= results[2].Score {
		t.Fatalf("scores not strictly decreasing: %v", results)
	}
	// Scale invariance: cosine ignores magnitude.
	scaled, err := idx.Search([]float32{10, 0, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if scaled[0].Score != results[0].Score {
		t.Fatalf("expected scale-invariant score, got %f vs %f", scaled[0].Score, results[0].Score)
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	idx, err := Build(testChunks("first", "second"), [][]float32{
		{1, 0},
		{1, 0},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	results, err := idx.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results[0].ChunkID != "first:0" || results[1].ChunkID != "second:0" {
		t.Fatalf("tie broke insertion order: %s, %s", results[0].ChunkID, results[1].ChunkID)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	results, err := idx.Search([]float32{1, 0}, 5)
	if err != nil || results != nil {
		t.Fatalf("expected nil, nil for empty index, got %v, %v", results, err)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, err := Build(testChunks("a"), [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := idx.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		IndexPath: filepath.Join(dir, "patterns.idx"),
		MetaPath:  filepath.Join(dir, "patterns.meta.json"),
	}
	idx, err := Build(testChunks("a", "b"), [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := idx.Persist(cfg); err != nil {
		t.Fatalf("persist: %v", err)
	}
	loaded, err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != idx.Len() || loaded.Dim() != idx.Dim() {
		t.Fatalf("loaded index shape %d/%d, expected %d/%d", loaded.Len(), loaded.Dim(), idx.Len(), idx.Dim())
	}
	query := []float32{0.7, 0.3, 0}
	want, err := idx.Search(query, 2)
	if err != nil {
		t.Fatalf("search original: %v", err)
	}
	got, err := loaded.Search(query, 2)
	if err != nil {
		t.Fatalf("search loaded: %v", err)
	}
	for i := range want {
		if want[i].ChunkID != got[i].ChunkID || want[i].Score != got[i].Score {
			t.Fatalf("result %d differs after round trip: %+v vs %+v", i, want[i], got[i])
		}
	}
}

func TestLoadMissingIndex(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		IndexPath: filepath.Join(dir, "none.idx"),
		MetaPath:  filepath.Join(dir, "none.meta.json"),
	}
	_, err := Load(cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		IndexPath: filepath.Join(dir, "patterns.idx"),
		MetaPath:  filepath.Join(dir, "patterns.meta.json"),
	}
	idx, err := Build(testChunks("a"), [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := idx.Persist(cfg); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := os.WriteFile(cfg.MetaPath, []byte(`{"version": 99, "chunks": []}`), 0o644); err != nil {
		t.Fatalf("rewrite meta: %v", err)
	}
	_, err = Load(cfg)
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError, got %v", err)
	}
}

func TestAttachResolvesPatterns(t *testing.T) {
	patterns := []pattern.Pattern{{PatternID: "a", Name: "A"}}
	idx, err := Build(testChunks("a"), [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := idx.Attach(patterns); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if idx.Chunks()[0].Pattern == nil || idx.Chunks()[0].Pattern.Name != "A" {
		t.Fatal("pattern pointer not attached")
	}
	if err := idx.Attach(nil); err == nil {
		t.Fatal("expected error for unresolvable pattern")
	}
}

func TestRefPublishLoad(t *testing.T) {
	var ref Ref
	if ref.Load() != nil {
		t.Fatal("expected nil before publish")
	}
	idx, err := Build(testChunks("a"), [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ref.Publish(idx)
	if ref.Load() != idx {
		t.Fatal("expected published index")
	}
}
