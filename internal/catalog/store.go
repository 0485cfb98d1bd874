package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/calderasoft/patternrag/internal/common"
	"github.com/calderasoft/patternrag/internal/pattern"
)

// Store keeps a queryable catalog of loaded patterns and a history of
// index rebuilds in SQLite.
type Store struct {
	db *sqlx.DB
}

// PatternRow is the catalog view of one pattern.
type PatternRow struct {
	PatternID    string    `db:"pattern_id" json:"pattern_id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Complexity   string    `db:"complexity" json:"complexity"`
	UseCaseCount int       `db:"use_case_count" json:"use_case_count"`
	Fallback     bool      `db:"fallback" json:"fallback"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RebuildRow is one recorded index rebuild.
type RebuildRow struct {
	ID           int64     `db:"id" json:"id"`
	PatternCount int       `db:"pattern_count" json:"pattern_count"`
	ChunkCount   int       `db:"chunk_count" json:"chunk_count"`
	DurationMS   int64     `db:"duration_ms" json:"duration_ms"`
	Forced       bool      `db:"forced" json:"forced"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS patterns (
    pattern_id     TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    complexity     TEXT NOT NULL DEFAULT '',
    use_case_count INTEGER NOT NULL DEFAULT 0,
    fallback       INTEGER NOT NULL DEFAULT 0,
    updated_at     TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS rebuilds (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    pattern_count INTEGER NOT NULL,
    chunk_count   INTEGER NOT NULL,
    duration_ms   INTEGER NOT NULL,
    forced        INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMP NOT NULL
);
`

// Open opens the catalog with default configuration at path.
func Open(path string) (*Store, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	return OpenWithConfig(cfg)
}

// OpenWithConfig opens the catalog database, creating the file and
// schema when missing.
func OpenWithConfig(cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ping %s: %w", cfg.Path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	common.Logger().Info("catalog: opened", "path", cfg.Path)
	return &Store{db: db}, nil
}

// DB exposes the underlying connection for tests.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// ReplacePatterns swaps the catalog contents for the given patterns in
// one transaction.
func (s *Store) ReplacePatterns(ctx context.Context, patterns []pattern.Pattern) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM patterns`); err != nil {
		return fmt.Errorf("catalog: clear patterns: %w", err)
	}
	now := time.Now().UTC()
	for _, p := range patterns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO patterns (pattern_id, name, description, complexity, use_case_count, fallback, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.PatternID, p.Name, p.Description, p.Complexity, len(p.UseCases), p.Fallback, now)
		if err != nil {
			return fmt.Errorf("catalog: insert pattern %s: %w", p.PatternID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}

// Patterns lists the catalog contents ordered by pattern id.
func (s *Store) Patterns(ctx context.Context) ([]PatternRow, error) {
	rows := []PatternRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT pattern_id, name, description, complexity, use_case_count, fallback, updated_at
		FROM patterns ORDER BY pattern_id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list patterns: %w", err)
	}
	return rows, nil
}

// RecordRebuild appends one rebuild to the audit history.
func (s *Store) RecordRebuild(ctx context.Context, patternCount, chunkCount int, duration time.Duration, forced bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rebuilds (pattern_count, chunk_count, duration_ms, forced, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		patternCount, chunkCount, duration.Milliseconds(), forced, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("catalog: record rebuild: %w", err)
	}
	return nil
}

// History lists the most recent rebuilds, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]RebuildRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows := []RebuildRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, pattern_count, chunk_count, duration_ms, forced, created_at
		FROM rebuilds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: rebuild history: %w", err)
	}
	return rows, nil
}
