package telemetry

import (
	"expvar"
	"sync"
	"time"
)

var (
	initOnce sync.Once

	embedCallsTotal    *expvar.Int
	embedFailuresTotal *expvar.Int
	embedItemsTotal    *expvar.Int
	embedLatencyMS     *expvar.Int

	vectorSearchTotal     *expvar.Int
	vectorSearchLatencyMS *expvar.Int

	retrieveTotal         *expvar.Int
	retrieveFallbackTotal *expvar.Int

	rebuildTotal         *expvar.Int
	rebuildFailuresTotal *expvar.Int
	rebuildLatencyMS     *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		embedCallsTotal = expvar.NewInt("patternrag_embed_calls_total")
		embedFailuresTotal = expvar.NewInt("patternrag_embed_failures_total")
		embedItemsTotal = expvar.NewInt("patternrag_embed_items_total")
		embedLatencyMS = expvar.NewInt("patternrag_embed_latency_ms")

		vectorSearchTotal = expvar.NewInt("patternrag_vector_search_total")
		vectorSearchLatencyMS = expvar.NewInt("patternrag_vector_search_latency_ms")

		retrieveTotal = expvar.NewInt("patternrag_retrieve_total")
		retrieveFallbackTotal = expvar.NewInt("patternrag_retrieve_fallback_total")

		rebuildTotal = expvar.NewInt("patternrag_rebuild_total")
		rebuildFailuresTotal = expvar.NewInt("patternrag_rebuild_failures_total")
		rebuildLatencyMS = expvar.NewInt("patternrag_rebuild_latency_ms")
	})
}

// RecordEmbedding tracks one embedding request covering n input texts.
func RecordEmbedding(ok bool, n int, elapsed time.Duration) {
	ensureInit()
	embedCallsTotal.Add(1)
	embedItemsTotal.Add(int64(n))
	embedLatencyMS.Add(elapsed.Milliseconds())
	if !ok {
		embedFailuresTotal.Add(1)
	}
}

// RecordVectorSearch tracks one nearest-neighbour scan.
func RecordVectorSearch(elapsed time.Duration) {
	ensureInit()
	vectorSearchTotal.Add(1)
	vectorSearchLatencyMS.Add(elapsed.Milliseconds())
}

// RecordRetrieve tracks one retrieval call and whether it served the
// designated fallback pattern.
func RecordRetrieve(fallback bool) {
	ensureInit()
	retrieveTotal.Add(1)
	if fallback {
		retrieveFallbackTotal.Add(1)
	}
}

// RecordRebuild tracks one index rebuild attempt.
func RecordRebuild(ok bool, elapsed time.Duration) {
	ensureInit()
	rebuildTotal.Add(1)
	rebuildLatencyMS.Add(elapsed.Milliseconds())
	if !ok {
		rebuildFailuresTotal.Add(1)
	}
}
