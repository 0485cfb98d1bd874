package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/calderasoft/patternrag/internal/common"
	"github.com/calderasoft/patternrag/internal/common/telemetry"
	"github.com/calderasoft/patternrag/internal/llm"
	"github.com/calderasoft/patternrag/internal/llm/providers"
	"github.com/calderasoft/patternrag/internal/pattern"
	"github.com/calderasoft/patternrag/internal/vector"
)

// ErrRetrievalUnavailable is returned when no index has been built yet,
// or when nothing clears the confidence floor and the corpus defines no
// fallback pattern.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Embedder turns query text into vectors. Failures are expected to wrap
// llm.ErrEmbeddingUnavailable.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// CandidateResult is one ranked pattern recommendation.
type CandidateResult struct {
	PatternID                  string           `json:"pattern_id"`
	Confidence                 float64          `json:"confidence"`
	MatchedChunkID             string           `json:"matched_chunk_id,omitempty"`
	MissingRequiredFields      []string         `json:"missing_required_fields"`
	SatisfiedRecommendedFields []string         `json:"satisfied_recommended_fields"`
	Rank                       int              `json:"rank"`
	Fallback                   bool             `json:"fallback"`
	Pattern                    *pattern.Pattern `json:"-"`
}

// Retriever ranks pattern chunks against a query using a blend of
// vector similarity, data compatibility, keyword overlap, and intent
// agreement.
type Retriever struct {
	cfg      Config
	embedder Embedder
	ref      *vector.Ref
}

// New builds a retriever over the published index ref.
func New(cfg Config, embedder Embedder, ref *vector.Ref) (*Retriever, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("retriever: embedder required")
	}
	if ref == nil {
		return nil, fmt.Errorf("retriever: index ref required")
	}
	return &Retriever{cfg: cfg, embedder: embedder, ref: ref}, nil
}

type scored struct {
	chunk    *pattern.Chunk
	fused    float64
	position int
}

// Retrieve returns up to k candidates for query, best first. dataFields
// names the fields present in the caller's data payload; analysis may be
// nil. When nothing clears the confidence floor the corpus fallback
// pattern is returned alone with confidence 0.
func (r *Retriever) Retrieve(ctx context.Context, query string, analysis *QueryAnalysis, dataFields []string, k int) ([]CandidateResult, error) {
	logger := common.Logger()
	idx := r.ref.Load()
	if idx == nil {
		return nil, fmt.Errorf("%w: index not built", ErrRetrievalUnavailable)
	}
	if k <= 0 {
		k = defaultK
	}
	fetch := k * 3
	if fetch < 10 {
		fetch = 10
	}

	weights := r.cfg.Weights
	var hits []scored
	queryVecs, err := llm.EmbedTexts(ctx, embedderAdapter{r.embedder}, r.cfg.EmbedTimeout, []string{query})
	switch {
	case err == nil:
		results, searchErr := idx.Search(queryVecs[0], fetch)
		if searchErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, searchErr)
		}
		hits = make([]scored, len(results))
		for i, res := range results {
			vec01 := float64(res.Score)
			if vec01 < 0 {
				vec01 = 0
			}
			hits[i] = scored{chunk: res.Chunk, position: res.Position}
			hits[i].fused = weights.Vector*vec01 +
				weights.DataCompatibility*dataCompatibility(res.Chunk.Requirements, dataFields) +
				weights.KeywordOverlap*keywordOverlap(res.Chunk.Keywords, query) +
				weights.IntentAgreement*intentAgreement(analysis, res.Chunk)
		}
	case errors.Is(err, llm.ErrEmbeddingUnavailable) && r.cfg.LexicalFallback:
		logger.Warn("retriever: embedding unavailable, serving lexical-only results", "error", err)
		weights.KeywordOverlap += weights.Vector
		weights.Vector = 0
		chunks := idx.Chunks()
		hits = make([]scored, len(chunks))
		for i := range chunks {
			hits[i] = scored{chunk: &chunks[i], position: i}
			hits[i].fused = weights.KeywordOverlap*keywordOverlap(chunks[i].Keywords, query) +
				weights.DataCompatibility*dataCompatibility(chunks[i].Requirements, dataFields) +
				weights.IntentAgreement*intentAgreement(analysis, &chunks[i])
		}
	default:
		return nil, err
	}

	// One candidate per pattern: keep the best-scoring chunk, earlier
	// vector rank winning exact ties.
	best := make(map[string]scored, len(hits))
	for _, h := range hits {
		prev, ok := best[h.chunk.PatternID]
		if !ok || h.fused > prev.fused || (h.fused == prev.fused && h.position < prev.position) {
			best[h.chunk.PatternID] = h
		}
	}
	ranked := make([]scored, 0, len(best))
	for _, h := range best {
		ranked = append(ranked, h)
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].fused != ranked[b].fused {
			return ranked[a].fused > ranked[b].fused
		}
		return ranked[a].position < ranked[b].position
	})

	kept := ranked[:0]
	for _, h := range ranked {
		if h.fused >= r.cfg.MinScore {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		fb := fallbackChunk(idx)
		if fb == nil {
			return nil, fmt.Errorf("%w: no candidates above floor %.2f and no fallback pattern", ErrRetrievalUnavailable, r.cfg.MinScore)
		}
		logger.Info("retriever: no candidates above floor, serving fallback", "pattern", fb.PatternID)
		telemetry.RecordRetrieve(true)
		return []CandidateResult{buildCandidate(fb, 0, 1, true, dataFields)}, nil
	}
	if len(kept) > k {
		kept = kept[:k]
	}

	out := make([]CandidateResult, len(kept))
	for i, h := range kept {
		out[i] = buildCandidate(h.chunk, h.fused, i+1, false, dataFields)
	}
	telemetry.RecordRetrieve(false)
	return out, nil
}

func buildCandidate(chunk *pattern.Chunk, confidence float64, rank int, fallback bool, dataFields []string) CandidateResult {
	have := make(map[string]struct{}, len(dataFields))
	for _, f := range dataFields {
		have[strings.TrimSpace(f)] = struct{}{}
	}
	missing := make([]string, 0)
	for _, f := range chunk.Requirements.RequiredFields {
		if _, ok := have[f]; !ok {
			missing = append(missing, f)
		}
	}
	satisfied := make([]string, 0)
	for _, f := range chunk.Requirements.RecommendedFields {
		if _, ok := have[f]; ok {
			satisfied = append(satisfied, f)
		}
	}
	sort.Strings(missing)
	sort.Strings(satisfied)
	return CandidateResult{
		PatternID:                  chunk.PatternID,
		Confidence:                 confidence,
		MatchedChunkID:             chunk.ChunkID,
		MissingRequiredFields:      missing,
		SatisfiedRecommendedFields: satisfied,
		Rank:                       rank,
		Fallback:                   fallback,
		Pattern:                    chunk.Pattern,
	}
}

// dataCompatibility is the fraction of a chunk's required fields present
// in the caller's data. A chunk with no required fields is fully
// compatible.
func dataCompatibility(req pattern.DataRequirements, dataFields []string) float64 {
	if len(req.RequiredFields) == 0 {
		return 1
	}
	have := make(map[string]struct{}, len(dataFields))
	for _, f := range dataFields {
		have[strings.TrimSpace(f)] = struct{}{}
	}
	matched := 0
	for _, f := range req.RequiredFields {
		if _, ok := have[f]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(req.RequiredFields))
}

// keywordOverlap is the fraction of chunk keywords that appear verbatim
// in the lowercased query.
func keywordOverlap(keywords []string, query string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	q := strings.ToLower(query)
	matched := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(q, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// intentAgreement blends two signals: whether the analyzed intent fits
// the pattern's layout, and whether the analyzed object type appears in
// the chunk keywords. Unknown signals score neutral.
func intentAgreement(analysis *QueryAnalysis, chunk *pattern.Chunk) float64 {
	if analysis == nil {
		return 0.5
	}
	layout := ""
	if chunk.Pattern != nil {
		layout = strings.ToLower(chunk.Pattern.LayoutType)
	}
	intentPart := 0.5
	if analysis.Intent != "" && layout != "" {
		if layoutMatchesIntent(analysis.Intent, layout) {
			intentPart = 1
		} else {
			intentPart = 0
		}
	}
	objectPart := 0.5
	if analysis.ObjectType != "" {
		objectPart = 0
		obj := strings.ToLower(analysis.ObjectType)
		for _, kw := range chunk.Keywords {
			if strings.Contains(kw, obj) {
				objectPart = 1
				break
			}
		}
	}
	return 0.5*intentPart + 0.5*objectPart
}

var intentLayouts = map[string][]string{
	IntentViewList:      {"list", "table", "grid", "collection"},
	IntentViewDetail:    {"detail", "card", "profile", "form"},
	IntentViewDashboard: {"dashboard", "metrics", "analytics", "chart"},
}

func layoutMatchesIntent(intent, layout string) bool {
	for _, hint := range intentLayouts[intent] {
		if strings.Contains(layout, hint) {
			return true
		}
	}
	return false
}

func fallbackChunk(idx *vector.Index) *pattern.Chunk {
	chunks := idx.Chunks()
	for i := range chunks {
		if chunks[i].Pattern != nil && chunks[i].Pattern.Fallback {
			return &chunks[i]
		}
	}
	return nil
}

// embedderAdapter lets the llm embedding helper wrap any Embedder with
// its timeout and validation behaviour.
type embedderAdapter struct {
	embedder Embedder
}

func (a embedderAdapter) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return a.embedder.Embed(ctx, input)
}

func (a embedderAdapter) Chat(ctx context.Context, _ []providers.Message) (string, error) {
	return "", fmt.Errorf("retriever: embed-only adapter")
}

func (a embedderAdapter) Name() string { return "query-embedder" }
