package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls the SQLite catalog connection.
type Config struct {
	Path            string
	BusyTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a catalog under data/catalog.db with
// conservative pool limits.
func DefaultConfig() Config {
	return Config{
		Path:            filepath.Join("data", "catalog.db"),
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

// LoadConfig merges PATTERNRAG_CATALOG_* environment overrides over the
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv("PATTERNRAG_CATALOG_PATH")); v != "" {
		cfg.Path = v
	}
	if raw := strings.TrimSpace(os.Getenv("PATTERNRAG_CATALOG_BUSY_TIMEOUT")); raw != "" {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("catalog: invalid PATTERNRAG_CATALOG_BUSY_TIMEOUT %q: %w", raw, err)
		}
		cfg.BusyTimeout = v
	}
	if raw := strings.TrimSpace(os.Getenv("PATTERNRAG_CATALOG_MAX_OPEN_CONNS")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("catalog: invalid PATTERNRAG_CATALOG_MAX_OPEN_CONNS %q: %w", raw, err)
		}
		cfg.MaxOpenConns = v
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.Path) == "" {
		return fmt.Errorf("catalog: path required")
	}
	if cfg.BusyTimeout < 0 {
		return fmt.Errorf("catalog: busy timeout must be non-negative")
	}
	if cfg.MaxOpenConns < 1 {
		return fmt.Errorf("catalog: max open conns must be at least 1")
	}
	return nil
}
