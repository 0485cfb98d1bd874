package orchestrator

import "github.com/calderasoft/patternrag/internal/llm/providers"

// Option customises orchestrator construction.
type Option func(*settings)

type settings struct {
	provider    providers.Provider
	skipCatalog bool
}

// WithProvider overrides the environment-selected model backend.
func WithProvider(p providers.Provider) Option {
	return func(s *settings) {
		s.provider = p
	}
}

// WithoutCatalog disables the SQLite catalog, for embedded use where
// only retrieval matters.
func WithoutCatalog() Option {
	return func(s *settings) {
		s.skipCatalog = true
	}
}
