package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/calderasoft/patternrag/internal/common"
)

// Corpus loads pattern definitions from a directory of JSON files, one
// pattern per file.
type Corpus struct {
	dir string
}

// NewCorpus returns a corpus rooted at dir. The directory is read lazily
// on Load.
func NewCorpus(dir string) *Corpus {
	return &Corpus{dir: dir}
}

// Dir returns the corpus directory.
func (c *Corpus) Dir() string { return c.dir }

// Load reads every *.json file under the corpus directory in sorted
// order and validates the resulting patterns. A file that cannot be
// parsed, a pattern with an empty pattern_id, or a duplicate pattern_id
// aborts the load with a CorpusError naming the offending file.
func (c *Corpus) Load(ctx context.Context) ([]Pattern, error) {
	logger := common.Logger()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: read dir %s: %w", c.dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	patterns := make([]Pattern, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(c.dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, &CorpusError{File: name, Err: err}
		}
		var p Pattern
		if err := json.Unmarshal(raw, &p); err != nil {
			if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
				return nil, &CorpusError{File: name, Err: fmt.Errorf("field %q: %w", typeErr.Field, err)}
			}
			return nil, &CorpusError{File: name, Err: err}
		}
		p.PatternID = strings.TrimSpace(p.PatternID)
		if p.PatternID == "" {
			return nil, &CorpusError{File: name, Err: fmt.Errorf("missing pattern_id")}
		}
		if prev, ok := seen[p.PatternID]; ok {
			return nil, &CorpusError{File: name, Err: fmt.Errorf("duplicate pattern_id %q already defined in %s", p.PatternID, prev)}
		}
		seen[p.PatternID] = name
		patterns = append(patterns, p)
	}
	logger.Info("corpus: loaded patterns", "dir", c.dir, "count", len(patterns))
	return patterns, nil
}

// FallbackPattern returns the pattern flagged as the corpus fallback, or
// nil when none is defined.
func FallbackPattern(patterns []Pattern) *Pattern {
	for i := range patterns {
		if patterns[i].Fallback {
			return &patterns[i]
		}
	}
	return nil
}
