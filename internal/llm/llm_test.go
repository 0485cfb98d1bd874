package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calderasoft/patternrag/internal/llm/providers"
)

func TestNewProviderDefaultsToLocal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	provider := NewProvider()
	if provider.Name() != "local" {
		t.Fatalf("expected local provider, got %s", provider.Name())
	}
}

func TestNewProviderUsesOpenAIWhenKeySet(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	provider := NewProvider()
	if provider.Name() != "openai" {
		t.Fatalf("expected openai provider, got %s", provider.Name())
	}
}

func TestEmbedTextsValidatesShape(t *testing.T) {
	ctx := context.Background()

	if _, err := EmbedTexts(ctx, &stubProvider{vectors: [][]float32{{1}}}, time.Second, []string{"a", "b"}); !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable for count mismatch, got %v", err)
	}
	if _, err := EmbedTexts(ctx, &stubProvider{vectors: [][]float32{{1, 2}, {3}}}, time.Second, []string{"a", "b"}); !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable for mixed dims, got %v", err)
	}
	if _, err := EmbedTexts(ctx, &stubProvider{err: errors.New("boom")}, time.Second, []string{"a"}); !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable for backend error, got %v", err)
	}
}

func TestEmbedTextsLocalDeterministic(t *testing.T) {
	ctx := context.Background()
	provider := providers.NewLocalProvider()

	first, err := EmbedTexts(ctx, provider, time.Second, []string{"show me all leads"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := EmbedTexts(ctx, provider, time.Second, []string{"show me all leads"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(first) != 1 || len(second) != 1 || len(first[0]) != len(second[0]) {
		t.Fatal("unexpected vector shapes")
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("vector differs at %d", i)
		}
	}
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	vectors, err := EmbedTexts(context.Background(), providers.NewLocalProvider(), time.Second, nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil, nil for empty input, got %v, %v", vectors, err)
	}
}

type stubProvider struct {
	vectors [][]float32
	err     error
}

func (s *stubProvider) Chat(ctx context.Context, messages []providers.Message) (string, error) {
	return "", nil
}

func (s *stubProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors, nil
}

func (s *stubProvider) Name() string { return "stub" }
