package providers

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const localEmbedDim = 64

// LocalProvider is an offline backend. Embeddings come from a
// deterministic token feature hash so nearby phrasings still land near
// each other; chat just echoes the last message. It keeps the service
// usable without an API key.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "[local]", nil
	}
	return "[local] " + messages[len(messages)-1].Content, nil
}

func (p *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(input))
	for i, text := range input {
		out[i] = hashEmbed(text)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, localEmbedDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,:;!?\"'()[]")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%localEmbedDim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
