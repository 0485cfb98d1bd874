package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config controls where the index is persisted on disk.
type Config struct {
	IndexPath string
	MetaPath  string
}

// DefaultConfig returns paths under data/index relative to the working
// directory.
func DefaultConfig() Config {
	return Config{
		IndexPath: filepath.Join("data", "index", "patterns.idx"),
		MetaPath:  filepath.Join("data", "index", "patterns.meta.json"),
	}
}

// LoadConfig merges PATTERNRAG_INDEX_PATH and PATTERNRAG_INDEX_META_PATH
// over the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv("PATTERNRAG_INDEX_PATH")); v != "" {
		cfg.IndexPath = v
	}
	if v := strings.TrimSpace(os.Getenv("PATTERNRAG_INDEX_META_PATH")); v != "" {
		cfg.MetaPath = v
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge overlays non-empty fields from other onto cfg.
func (cfg Config) Merge(other Config) Config {
	if other.IndexPath != "" {
		cfg.IndexPath = other.IndexPath
	}
	if other.MetaPath != "" {
		cfg.MetaPath = other.MetaPath
	}
	return cfg
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.IndexPath) == "" {
		return fmt.Errorf("vector: index path required")
	}
	if strings.TrimSpace(cfg.MetaPath) == "" {
		return fmt.Errorf("vector: index metadata path required")
	}
	return nil
}
