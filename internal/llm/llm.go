package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/calderasoft/patternrag/internal/common"
	"github.com/calderasoft/patternrag/internal/common/telemetry"
	"github.com/calderasoft/patternrag/internal/llm/providers"
)

// ErrEmbeddingUnavailable marks embedding failures so callers can
// distinguish a dead backend from bad input.
var ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

// NewProvider selects a backend from the environment: OpenAI when
// OPENAI_API_KEY is set, the deterministic local provider otherwise.
func NewProvider() providers.Provider {
	logger := common.Logger()
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		provider, err := providers.NewOpenAIProvider(key)
		if err == nil {
			logger.Info("llm: using openai provider")
			return provider
		}
		logger.Warn("llm: openai provider unavailable, falling back to local", "error", err)
	}
	logger.Info("llm: using local provider")
	return providers.NewLocalProvider()
}

// EmbedTexts embeds input under a timeout and validates the response
// shape. All failures wrap ErrEmbeddingUnavailable.
func EmbedTexts(ctx context.Context, provider providers.Provider, timeout time.Duration, input []string) ([][]float32, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	vectors, err := provider.Embed(ctx, input)
	telemetry.RecordEmbedding(err == nil, len(input), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEmbeddingUnavailable, provider.Name(), err)
	}
	if len(vectors) != len(input) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d inputs", ErrEmbeddingUnavailable, provider.Name(), len(vectors), len(input))
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: %s returned empty vector at index %d", ErrEmbeddingUnavailable, provider.Name(), i)
		}
		if len(vec) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: %s returned mixed dimensions %d and %d", ErrEmbeddingUnavailable, provider.Name(), len(vectors[0]), len(vec))
		}
	}
	return vectors, nil
}
