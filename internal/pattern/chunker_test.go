package pattern

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunksPerUseCase(t *testing.T) {
	patterns := []Pattern{{
		PatternID:   "data-table",
		Name:        "Data Table",
		Description: "Tabular listing.",
		UseCases:    []string{"show me all leads", "list contacts"},
		Requirements: DataRequirements{
			RequiredFields:    []string{"name"},
			RecommendedFields: []string{"email"},
			DataShape:         ShapeArray,
		},
	}}

	chunks := Chunks(patterns)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ChunkID != "data-table:0" || chunks[1].ChunkID != "data-table:1" {
		t.Fatalf("unexpected chunk ids %s, %s", chunks[0].ChunkID, chunks[1].ChunkID)
	}
	if !strings.Contains(chunks[0].SearchableText, "Data Table for show me all leads.") {
		t.Fatalf("unexpected searchable text %q", chunks[0].SearchableText)
	}
	if !strings.Contains(chunks[0].SearchableText, "Fields: name, email.") {
		t.Fatalf("expected field names in searchable text, got %q", chunks[0].SearchableText)
	}
	want := []string{"data-table", "data table", "show me all leads", "name", "email"}
	if !reflect.DeepEqual(chunks[0].Keywords, want) {
		t.Fatalf("unexpected keywords %v", chunks[0].Keywords)
	}
	if chunks[1].Pattern != chunks[0].Pattern {
		t.Fatal("chunks of one pattern should share the pattern pointer")
	}
}

func TestChunksFallbackToName(t *testing.T) {
	patterns := []Pattern{{
		PatternID:   "detail-card",
		Name:        "Detail Card",
		Description: "Single record view.",
	}}

	chunks := Chunks(patterns)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ChunkID != "detail-card:0" {
		t.Fatalf("unexpected chunk id %s", chunks[0].ChunkID)
	}
	if !strings.HasPrefix(chunks[0].SearchableText, "Detail Card. Single record view.") {
		t.Fatalf("unexpected searchable text %q", chunks[0].SearchableText)
	}
}

func TestChunksDeterministic(t *testing.T) {
	patterns := []Pattern{
		{PatternID: "a", Name: "A", UseCases: []string{"one", "two"}},
		{PatternID: "b", Name: "B", UseCases: []string{"three"}},
	}
	first := Chunks(patterns)
	second := Chunks(patterns)
	if len(first) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(first))
	}
	for i := range first {
		if first[i].ChunkID != second[i].ChunkID || first[i].SearchableText != second[i].SearchableText {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}
