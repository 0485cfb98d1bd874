package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calderasoft/patternrag/internal/catalog"
	"github.com/calderasoft/patternrag/internal/vector"
)

const defaultEmbedTimeout = 60 * time.Second

// Config wires the orchestrator's inputs: the corpus directory, the
// persisted index location, and the catalog database.
type Config struct {
	PatternsDir  string
	Index        vector.Config
	Catalog      catalog.Config
	EmbedTimeout time.Duration
}

// DefaultConfig places everything under the working directory.
func DefaultConfig() Config {
	return Config{
		PatternsDir:  filepath.Join("data", "patterns"),
		Index:        vector.DefaultConfig(),
		Catalog:      catalog.DefaultConfig(),
		EmbedTimeout: defaultEmbedTimeout,
	}
}

// LoadConfig merges environment overrides over the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv("PATTERNRAG_PATTERNS_DIR")); v != "" {
		cfg.PatternsDir = v
	}
	indexCfg, err := vector.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Index = indexCfg
	catalogCfg, err := catalog.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Catalog = catalogCfg
	if raw := strings.TrimSpace(os.Getenv("PATTERNRAG_EMBED_TIMEOUT")); raw != "" {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("orchestrator: invalid PATTERNRAG_EMBED_TIMEOUT %q: %w", raw, err)
		}
		cfg.EmbedTimeout = v
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.PatternsDir) == "" {
		return fmt.Errorf("orchestrator: patterns dir required")
	}
	if cfg.EmbedTimeout <= 0 {
		return fmt.Errorf("orchestrator: embed timeout must be positive")
	}
	return nil
}
