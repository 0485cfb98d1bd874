package pattern

import (
	"fmt"
	"strings"
)

// Chunks expands patterns into retrievable chunks. Each use case becomes
// its own chunk so a pattern can match several phrasings of the same
// need; a pattern without use cases still gets one chunk built from its
// name and description. Output order is deterministic given input order.
func Chunks(patterns []Pattern) []Chunk {
	chunks := make([]Chunk, 0, len(patterns))
	for i := range patterns {
		p := &patterns[i]
		if len(p.UseCases) == 0 {
			chunks = append(chunks, buildChunk(p, 0, ""))
			continue
		}
		for variant, useCase := range p.UseCases {
			chunks = append(chunks, buildChunk(p, variant, useCase))
		}
	}
	return chunks
}

func buildChunk(p *Pattern, variant int, useCase string) Chunk {
	return Chunk{
		ChunkID:        fmt.Sprintf("%s:%d", p.PatternID, variant),
		PatternID:      p.PatternID,
		Variant:        variant,
		SearchableText: searchableText(p, useCase),
		Keywords:       chunkKeywords(p, useCase),
		Requirements:   p.Requirements,
		Pattern:        p,
	}
}

func searchableText(p *Pattern, useCase string) string {
	var b strings.Builder
	if useCase != "" {
		fmt.Fprintf(&b, "%s for %s.", p.Name, useCase)
	} else {
		fmt.Fprintf(&b, "%s.", p.Name)
	}
	if p.Description != "" {
		b.WriteString(" ")
		b.WriteString(p.Description)
	}
	if len(p.BestFor) > 0 {
		fmt.Fprintf(&b, " Best for %s.", strings.Join(p.BestFor, ", "))
	}
	if p.LayoutType != "" {
		fmt.Fprintf(&b, " Layout: %s.", p.LayoutType)
	}
	fields := fieldNames(p.Requirements)
	if len(fields) > 0 {
		fmt.Fprintf(&b, " Fields: %s.", strings.Join(fields, ", "))
	}
	return b.String()
}

func chunkKeywords(p *Pattern, useCase string) []string {
	seen := make(map[string]struct{})
	keywords := make([]string, 0, 8)
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	add(p.PatternID)
	add(p.Name)
	add(useCase)
	for _, field := range fieldNames(p.Requirements) {
		add(field)
	}
	return keywords
}

func fieldNames(req DataRequirements) []string {
	fields := make([]string, 0, len(req.RequiredFields)+len(req.RecommendedFields))
	fields = append(fields, req.RequiredFields...)
	fields = append(fields, req.RecommendedFields...)
	return fields
}
