package retriever

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMinScore     = 0.25
	defaultEmbedTimeout = 15 * time.Second
	defaultK            = 5
)

// Weights are the fused-score components. They must be non-negative and
// sum to 1.
type Weights struct {
	Vector            float64
	DataCompatibility float64
	KeywordOverlap    float64
	IntentAgreement   float64
}

// DefaultWeights returns the production blend.
func DefaultWeights() Weights {
	return Weights{
		Vector:            0.60,
		DataCompatibility: 0.25,
		KeywordOverlap:    0.10,
		IntentAgreement:   0.05,
	}
}

func (w Weights) validate() error {
	for name, v := range map[string]float64{
		"vector":             w.Vector,
		"data_compatibility": w.DataCompatibility,
		"keyword_overlap":    w.KeywordOverlap,
		"intent_agreement":   w.IntentAgreement,
	} {
		if v < 0 {
			return fmt.Errorf("retriever: weight %s must be non-negative, got %f", name, v)
		}
	}
	sum := w.Vector + w.DataCompatibility + w.KeywordOverlap + w.IntentAgreement
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("retriever: weights must sum to 1, got %f", sum)
	}
	return nil
}

// Config controls scoring and fallback behaviour.
type Config struct {
	Weights Weights
	// MinScore is the confidence floor below which candidates are
	// discarded.
	MinScore float64
	// LexicalFallback allows retrieval to continue on keyword overlap
	// alone when the embedding backend is down. The vector weight moves
	// onto the keyword component for the degraded request.
	LexicalFallback bool
	EmbedTimeout    time.Duration
}

// DefaultConfig returns the standard retrieval configuration.
func DefaultConfig() Config {
	return Config{
		Weights:      DefaultWeights(),
		MinScore:     defaultMinScore,
		EmbedTimeout: defaultEmbedTimeout,
	}
}

// LoadConfig merges PATTERNRAG_RETRIEVER_* environment overrides over
// the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if raw := strings.TrimSpace(os.Getenv("PATTERNRAG_RETRIEVER_MIN_SCORE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("retriever: invalid PATTERNRAG_RETRIEVER_MIN_SCORE %q: %w", raw, err)
		}
		cfg.MinScore = v
	}
	if raw := strings.TrimSpace(os.Getenv("PATTERNRAG_RETRIEVER_LEXICAL_FALLBACK")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("retriever: invalid PATTERNRAG_RETRIEVER_LEXICAL_FALLBACK %q: %w", raw, err)
		}
		cfg.LexicalFallback = v
	}
	if raw := strings.TrimSpace(os.Getenv("PATTERNRAG_RETRIEVER_EMBED_TIMEOUT")); raw != "" {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("retriever: invalid PATTERNRAG_RETRIEVER_EMBED_TIMEOUT %q: %w", raw, err)
		}
		cfg.EmbedTimeout = v
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if err := cfg.Weights.validate(); err != nil {
		return err
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return fmt.Errorf("retriever: min score must be in [0, 1], got %f", cfg.MinScore)
	}
	return nil
}
