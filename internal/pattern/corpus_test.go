package pattern

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCorpusFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCorpusLoad(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "b_table.json", `{
		"pattern_id": "data-table",
		"pattern_name": "Data Table",
		"description": "Tabular listing with sortable columns.",
		"use_cases": ["show me all leads", "list contacts"],
		"data_requirements": {
			"required_fields": ["name"],
			"recommended_fields": ["email"],
			"data_shape": "array"
		}
	}`)
	writeCorpusFile(t, dir, "a_card.json", `{
		"pattern_id": "detail-card",
		"pattern_name": "Detail Card",
		"description": "Single record detail view.",
		"data_requirements": {"data_shape": "single_object"},
		"fallback": true
	}`)
	writeCorpusFile(t, dir, "notes.txt", "not a pattern")

	patterns, err := NewCorpus(dir).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	if patterns[0].PatternID != "detail-card" || patterns[1].PatternID != "data-table" {
		t.Fatalf("expected sorted file order, got %s then %s", patterns[0].PatternID, patterns[1].PatternID)
	}
	if patterns[1].Requirements.DataShape != ShapeArray {
		t.Fatalf("expected array shape, got %s", patterns[1].Requirements.DataShape)
	}
	fb := FallbackPattern(patterns)
	if fb == nil || fb.PatternID != "detail-card" {
		t.Fatalf("expected detail-card fallback, got %+v", fb)
	}
}

func TestCorpusLoadDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "one.json", `{"pattern_id": "dup", "pattern_name": "One"}`)
	writeCorpusFile(t, dir, "two.json", `{"pattern_id": "dup", "pattern_name": "Two"}`)

	_, err := NewCorpus(dir).Load(context.Background())
	var corpusErr *CorpusError
	if !errors.As(err, &corpusErr) {
		t.Fatalf("expected CorpusError, got %v", err)
	}
	if corpusErr.File != "two.json" {
		t.Fatalf("expected error to name two.json, got %s", corpusErr.File)
	}
	if !strings.Contains(corpusErr.Error(), "one.json") {
		t.Fatalf("expected error to reference first definition, got %v", corpusErr)
	}
}

func TestCorpusLoadMissingID(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "broken.json", `{"pattern_name": "No ID"}`)

	_, err := NewCorpus(dir).Load(context.Background())
	var corpusErr *CorpusError
	if !errors.As(err, &corpusErr) {
		t.Fatalf("expected CorpusError, got %v", err)
	}
	if corpusErr.File != "broken.json" {
		t.Fatalf("expected error to name broken.json, got %s", corpusErr.File)
	}
}

func TestCorpusLoadMalformedRequirements(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "bad.json", `{
		"pattern_id": "bad",
		"pattern_name": "Bad",
		"data_requirements": {"required_fields": "not-a-list"}
	}`)

	_, err := NewCorpus(dir).Load(context.Background())
	var corpusErr *CorpusError
	if !errors.As(err, &corpusErr) {
		t.Fatalf("expected CorpusError, got %v", err)
	}
	if !strings.Contains(corpusErr.Error(), "required_fields") {
		t.Fatalf("expected error to name the field, got %v", corpusErr)
	}
}

func TestCorpusLoadMissingDir(t *testing.T) {
	_, err := NewCorpus(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
