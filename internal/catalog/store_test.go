package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/calderasoft/patternrag/internal/pattern"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReplacePatterns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := []pattern.Pattern{
		{PatternID: "data-table", Name: "Data Table", UseCases: []string{"a", "b"}},
		{PatternID: "detail-card", Name: "Detail Card", Fallback: true},
	}
	if err := store.ReplacePatterns(ctx, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	rows, err := store.Patterns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].PatternID != "data-table" || rows[0].UseCaseCount != 2 {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if !rows[1].Fallback {
		t.Fatal("expected detail-card fallback flag")
	}

	second := []pattern.Pattern{{PatternID: "kpi-dashboard", Name: "Dashboard"}}
	if err := store.ReplacePatterns(ctx, second); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	rows, err = store.Patterns(ctx)
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if len(rows) != 1 || rows[0].PatternID != "kpi-dashboard" {
		t.Fatalf("expected replaced contents, got %+v", rows)
	}
}

func TestRebuildHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordRebuild(ctx, 3, 9, 120*time.Millisecond, false); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordRebuild(ctx, 4, 11, 95*time.Millisecond, true); err != nil {
		t.Fatalf("record: %v", err)
	}

	rows, err := store.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rebuilds, got %d", len(rows))
	}
	if rows[0].PatternCount != 4 || !rows[0].Forced {
		t.Fatalf("expected newest first, got %+v", rows[0])
	}
	if rows[1].ChunkCount != 9 || rows[1].DurationMS != 120 {
		t.Fatalf("unexpected older row %+v", rows[1])
	}

	limited, err := store.History(ctx, 1)
	if err != nil {
		t.Fatalf("history limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit applied, got %d", len(limited))
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("PATTERNRAG_CATALOG_PATH", "/tmp/custom.db")
	t.Setenv("PATTERNRAG_CATALOG_BUSY_TIMEOUT", "2s")
	t.Setenv("PATTERNRAG_CATALOG_MAX_OPEN_CONNS", "8")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != "/tmp/custom.db" || cfg.BusyTimeout != 2*time.Second || cfg.MaxOpenConns != 8 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("PATTERNRAG_CATALOG_MAX_OPEN_CONNS", "zero")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for bad conn count")
	}
}
