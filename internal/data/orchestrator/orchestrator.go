package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/calderasoft/patternrag/internal/catalog"
	"github.com/calderasoft/patternrag/internal/common"
	"github.com/calderasoft/patternrag/internal/common/telemetry"
	"github.com/calderasoft/patternrag/internal/llm"
	"github.com/calderasoft/patternrag/internal/llm/providers"
	"github.com/calderasoft/patternrag/internal/pattern"
	"github.com/calderasoft/patternrag/internal/vector"
)

// ErrRebuildInProgress is returned when a rebuild is requested while
// another one is still running.
var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// Stats describes one rebuild outcome.
type Stats struct {
	PatternCount  int           `json:"pattern_count"`
	ChunkCount    int           `json:"chunk_count"`
	BuildDuration time.Duration `json:"build_duration"`
	Skipped       bool          `json:"skipped"`
}

// Orchestrator owns the corpus-to-index pipeline: loading patterns,
// embedding chunks, publishing the index, and recording the rebuild in
// the catalog. It is the single writer of the index ref.
type Orchestrator struct {
	cfg      Config
	corpus   *pattern.Corpus
	provider providers.Provider
	catalog  *catalog.Store
	ref      *vector.Ref
	rebuild  sync.Mutex
}

// New builds an orchestrator. A previously persisted index is reloaded
// and published when present; a missing or unreadable one is logged and
// rebuilt on demand.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := common.Logger()
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.provider == nil {
		s.provider = llm.NewProvider()
	}
	o := &Orchestrator{
		cfg:      cfg,
		corpus:   pattern.NewCorpus(cfg.PatternsDir),
		provider: s.provider,
		ref:      &vector.Ref{},
	}
	if !s.skipCatalog {
		store, err := catalog.OpenWithConfig(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		o.catalog = store
	}
	if idx, err := vector.Load(cfg.Index); err == nil {
		if patterns, loadErr := o.corpus.Load(context.Background()); loadErr == nil {
			if attachErr := idx.Attach(patterns); attachErr == nil {
				o.ref.Publish(idx)
				logger.Info("orchestrator: restored persisted index", "chunks", idx.Len())
			} else {
				logger.Warn("orchestrator: persisted index does not match corpus, rebuild required", "error", attachErr)
			}
		} else {
			logger.Warn("orchestrator: corpus unavailable at startup", "error", loadErr)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("orchestrator: persisted index unreadable, rebuild required", "error", err)
	}
	return o, nil
}

// Ref returns the published index reference for retrievers.
func (o *Orchestrator) Ref() *vector.Ref { return o.ref }

// Provider returns the model backend in use.
func (o *Orchestrator) Provider() providers.Provider { return o.provider }

// Catalog returns the pattern catalog, nil when disabled.
func (o *Orchestrator) Catalog() *catalog.Store { return o.catalog }

// Close releases the catalog connection.
func (o *Orchestrator) Close() error {
	if o.catalog != nil {
		return o.catalog.Close()
	}
	return nil
}

// Rebuild loads the corpus, embeds every chunk, and atomically publishes
// the new index. With force false an already published index short
// circuits to Skipped stats. A failure anywhere leaves the previously
// published index serving. Only one rebuild runs at a time.
func (o *Orchestrator) Rebuild(ctx context.Context, force bool) (Stats, error) {
	logger := common.Logger()
	if !force {
		if idx := o.ref.Load(); idx != nil {
			return Stats{PatternCount: countPatterns(idx), ChunkCount: idx.Len(), Skipped: true}, nil
		}
	}
	if !o.rebuild.TryLock() {
		return Stats{}, ErrRebuildInProgress
	}
	defer o.rebuild.Unlock()

	start := time.Now()
	stats, err := o.rebuildLocked(ctx, force, start)
	telemetry.RecordRebuild(err == nil, time.Since(start))
	if err != nil {
		logger.Error("orchestrator: rebuild failed", "error", err)
		return Stats{}, err
	}
	logger.Info("orchestrator: rebuild complete",
		"patterns", stats.PatternCount,
		"chunks", stats.ChunkCount,
		"duration", stats.BuildDuration)
	return stats, nil
}

func (o *Orchestrator) rebuildLocked(ctx context.Context, force bool, start time.Time) (Stats, error) {
	logger := common.Logger()
	patterns, err := o.corpus.Load(ctx)
	if err != nil {
		return Stats{}, err
	}
	chunks := pattern.Chunks(patterns)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.SearchableText
	}
	embeddings, err := llm.EmbedTexts(ctx, o.provider, o.cfg.EmbedTimeout, texts)
	if err != nil {
		return Stats{}, err
	}
	idx, err := vector.Build(chunks, embeddings)
	if err != nil {
		return Stats{}, err
	}
	if err := idx.Persist(o.cfg.Index); err != nil {
		return Stats{}, err
	}
	o.ref.Publish(idx)

	duration := time.Since(start)
	if o.catalog != nil {
		if err := o.catalog.ReplacePatterns(ctx, patterns); err != nil {
			logger.Warn("orchestrator: catalog update failed", "error", err)
		}
		if err := o.catalog.RecordRebuild(ctx, len(patterns), len(chunks), duration, force); err != nil {
			logger.Warn("orchestrator: rebuild audit failed", "error", err)
		}
	}
	return Stats{PatternCount: len(patterns), ChunkCount: len(chunks), BuildDuration: duration}, nil
}

func countPatterns(idx *vector.Index) int {
	seen := make(map[string]struct{})
	for _, c := range idx.Chunks() {
		seen[c.PatternID] = struct{}{}
	}
	return len(seen)
}

// Patterns exposes the catalog listing, used by the API.
func (o *Orchestrator) Patterns(ctx context.Context) ([]catalog.PatternRow, error) {
	if o.catalog == nil {
		return nil, fmt.Errorf("orchestrator: catalog disabled")
	}
	return o.catalog.Patterns(ctx)
}

// History exposes the rebuild audit trail, used by the API.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]catalog.RebuildRow, error) {
	if o.catalog == nil {
		return nil, fmt.Errorf("orchestrator: catalog disabled")
	}
	return o.catalog.History(ctx, limit)
}
